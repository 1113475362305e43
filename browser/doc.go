// Package browser adapts a Chrome session driven over the DevTools
// protocol to the pipeline's page capability.
//
// Each Page owns one browser process via its own exec allocator, so
// concurrent provisioning runs never share cookie jars or profile
// state. The selector syntax accepted by Find follows the capability
// contract: CSS by default, XPath when the selector starts with "//"
// or "(".
package browser
