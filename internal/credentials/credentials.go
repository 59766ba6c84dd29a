// Package credentials stores the journal account used by the bot. The
// password is encrypted at rest; the bot holds a single account, so the
// store keeps exactly one record.
package credentials

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type ID string

func NewID() ID {
	return ID(gonanoid.Must())
}

type Credentials struct {
	ID       ID     `json:"id"`
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (c Credentials) encode(key Key) (*encodedCredentials, error) {
	encrypted, err := key.encrypt([]byte(c.Password))
	if err != nil {
		return nil, err
	}
	return &encodedCredentials{
		ID:       c.ID,
		Login:    c.Login,
		Password: encrypted,
	}, nil
}

type encodedCredentials struct {
	ID       ID     `json:"id"`
	Login    string `json:"login"`
	Password []byte `json:"password"`
}

func (e encodedCredentials) decode(key Key) (*Credentials, error) {
	password, err := key.decrypt(e.Password)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		ID:       e.ID,
		Login:    e.Login,
		Password: string(password),
	}, nil
}
