package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Identity document keys the reset rewrites. Everything else in the
// document passes through untouched.
const (
	KeyDevDeviceID  = "telemetry.devDeviceId"
	KeyMachineID    = "telemetry.machineId"
	KeyMacMachineID = "telemetry.macMachineId"
	KeySqmID        = "telemetry.sqmId"
)

// DeviceIdentitySet holds the four device-identity fields persisted by
// the client application.
type DeviceIdentitySet struct {
	DevDeviceID  string
	MachineID    string
	MacMachineID string
	SqmID        string
}

// NewDeviceIdentitySet draws a fresh set of device-identity values. The
// four draws are independent of each other.
func NewDeviceIdentitySet() (DeviceIdentitySet, error) {
	machineID, err := randomDigest(32, func(b []byte) []byte {
		sum := sha256.Sum256(b)
		return sum[:]
	})
	if err != nil {
		return DeviceIdentitySet{}, err
	}

	macMachineID, err := randomDigest(64, func(b []byte) []byte {
		sum := sha512.Sum512(b)
		return sum[:]
	})
	if err != nil {
		return DeviceIdentitySet{}, err
	}

	return DeviceIdentitySet{
		DevDeviceID:  uuid.NewString(),
		MachineID:    machineID,
		MacMachineID: macMachineID,
		SqmID:        "{" + strings.ToUpper(uuid.NewString()) + "}",
	}, nil
}

// Map returns the set keyed the way the identity document stores it.
func (s DeviceIdentitySet) Map() map[string]string {
	return map[string]string{
		KeyDevDeviceID:  s.DevDeviceID,
		KeyMachineID:    s.MachineID,
		KeyMacMachineID: s.MacMachineID,
		KeySqmID:        s.SqmID,
	}
}

// randomDigest hashes n freshly drawn random bytes and returns the digest
// as lowercase hex. The digest length, not the input length, determines
// the field width.
func randomDigest(n int, digest func([]byte) []byte) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not draw random bytes: %w", err)
	}
	return hex.EncodeToString(digest(buf)), nil
}
