package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
)

var ErrInvalidCredential = errors.New("invalid credential")

const basicScheme = "Basic"

type Credential struct {
	Username  string
	AccessKey string
}

// Header returns the value for the Authorization header.
func (c Credential) Header() (string, error) {
	return EncodeBasic(c.Username, c.AccessKey)
}

// EncodeBasic builds an HTTP Basic authorization value from name and key.
func EncodeBasic(name, key string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: username is empty", ErrInvalidCredential)
	}
	if key == "" {
		return "", fmt.Errorf("%w: access key is empty", ErrInvalidCredential)
	}

	token := base64.StdEncoding.EncodeToString([]byte(name + ":" + key))
	return fmt.Sprintf("%s %s", basicScheme, token), nil
}
