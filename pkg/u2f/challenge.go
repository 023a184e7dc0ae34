package u2f

import (
	"encoding/json"
	"fmt"
)

// BuildRegistrationChallenge lazily generates a challenge on c if needed
// and serializes the registration challenge JSON sent to the browser.
func BuildRegistrationChallenge(c *Ctx) ([]byte, error) {
	if c.appID == "" {
		return nil, fmt.Errorf("%w: app id must be set before a challenge can be issued", ErrMemory)
	}
	if err := c.EnsureChallenge(); err != nil {
		return nil, err
	}
	out, err := json.Marshal(RegistrationChallenge{
		Challenge: c.challenge,
		Version:   U2fVersion,
		AppID:     c.appID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJSON, err)
	}
	return out, nil
}

// BuildAuthenticationChallenge lazily generates a challenge on c if needed
// and serializes the authentication challenge JSON sent to the browser.
// The session must already carry the key handle of the credential being
// challenged.
func BuildAuthenticationChallenge(c *Ctx) ([]byte, error) {
	if len(c.keyHandle) == 0 {
		return nil, fmt.Errorf("%w: key handle must be set before a challenge can be issued", ErrMemory)
	}
	if c.appID == "" {
		return nil, fmt.Errorf("%w: app id must be set before a challenge can be issued", ErrMemory)
	}
	if err := c.EnsureChallenge(); err != nil {
		return nil, err
	}
	out, err := json.Marshal(AuthenticationChallenge{
		KeyHandle: WebSafeB64Encode(c.keyHandle),
		Version:   U2fVersion,
		Challenge: c.challenge,
		AppID:     c.appID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJSON, err)
	}
	return out, nil
}
