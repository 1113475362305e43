// Package identity generates the two kinds of identity material a
// provisioning run needs.
//
// A ProvisioningIdentity (name, email address, password) is generated
// once per attempt and immutable afterwards; the email's domain is drawn
// at random from a configured pool so repeated attempts spread across
// domains.
//
// A DeviceIdentitySet holds the four device-identity fields the client
// application persists locally. All four values are mutually independent
// random draws and are always regenerated wholesale, never partially
// updated:
//
//   - telemetry.devDeviceId: a version-4 UUID
//   - telemetry.machineId: 64 lowercase hex characters
//   - telemetry.macMachineId: 128 lowercase hex characters
//   - telemetry.sqmId: an uppercase UUID in braces
package identity
