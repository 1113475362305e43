package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// ProvisioningIdentity is the throwaway account identity for one
// provisioning attempt. Generated once per attempt, immutable afterwards.
type ProvisioningIdentity struct {
	FirstName    string
	LastName     string
	EmailAddress string
	Password     string
}

var (
	firstNames = []string{
		"Alex", "Casey", "Drew", "Evan", "Jamie", "Jordan", "Morgan",
		"Quinn", "Riley", "Sam", "Taylor", "Avery", "Blake", "Cameron",
	}
	lastNames = []string{
		"Anderson", "Brooks", "Carter", "Dawson", "Ellis", "Foster",
		"Grant", "Hayes", "Mitchell", "Parker", "Reed", "Sullivan",
	}
)

const (
	passwordLength  = 16
	passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%"
)

// Generator produces provisioning identities over a pool of mail
// domains.
type Generator struct {
	domains []string
}

// NewGenerator creates a Generator. The domain pool must not be empty.
func NewGenerator(domains []string) (*Generator, error) {
	if len(domains) == 0 {
		return nil, fmt.Errorf("domain pool is empty")
	}
	return &Generator{domains: domains}, nil
}

// Generate draws a fresh identity: random first/last name, a mailbox
// local part derived from the name plus four digits, a domain drawn at
// random from the pool, and a random password.
func (g *Generator) Generate() (ProvisioningIdentity, error) {
	first, err := pick(firstNames)
	if err != nil {
		return ProvisioningIdentity{}, err
	}
	last, err := pick(lastNames)
	if err != nil {
		return ProvisioningIdentity{}, err
	}
	domain, err := pick(g.domains)
	if err != nil {
		return ProvisioningIdentity{}, err
	}

	suffix, err := randomDigits(4)
	if err != nil {
		return ProvisioningIdentity{}, err
	}
	password, err := randomPassword()
	if err != nil {
		return ProvisioningIdentity{}, err
	}

	local := strings.ToLower(first) + strings.ToLower(last) + suffix
	return ProvisioningIdentity{
		FirstName:    first,
		LastName:     last,
		EmailAddress: local + "@" + strings.TrimPrefix(domain, "@"),
		Password:     password,
	}, nil
}

func pick(pool []string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pool))))
	if err != nil {
		return "", fmt.Errorf("could not draw random index: %w", err)
	}
	return pool[n.Int64()], nil
}

func randomDigits(n int) (string, error) {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("could not draw random digit: %w", err)
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}

func randomPassword() (string, error) {
	var sb strings.Builder
	for i := 0; i < passwordLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordCharset))))
		if err != nil {
			return "", fmt.Errorf("could not draw password character: %w", err)
		}
		sb.WriteByte(passwordCharset[n.Int64()])
	}
	return sb.String(), nil
}
