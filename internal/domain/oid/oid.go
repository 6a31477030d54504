// Package oid defines the identifier type shared by users and items.
//
// An ID is a 12-byte object id. It is a bson.ObjectID in MongoDB, a
// CHAR(24) hex column in Postgres and a 24 character hex string on the wire.
package oid

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var ErrInvalid = errors.New("invalid id")

type ID struct {
	v bson.ObjectID
}

var Nil ID

func New() ID {
	return ID{v: bson.NewObjectID()}
}

func Parse(s string) (ID, error) {
	v, err := bson.ObjectIDFromHex(s)
	if err != nil {
		return Nil, fmt.Errorf("%w: %q", ErrInvalid, s)
	}

	return ID{v: v}, nil
}

func FromObjectID(v bson.ObjectID) ID {
	return ID{v: v}
}

func (id ID) ObjectID() bson.ObjectID {
	return id.v
}

func (id ID) IsZero() bool {
	return id.v.IsZero()
}

func (id ID) String() string {
	return id.v.Hex()
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: expected string", ErrInvalid)
	}

	parsed, err := Parse(s)
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}

// Value stores the id as its hex form.
func (id ID) Value() (driver.Value, error) {
	return id.String(), nil
}

func (id *ID) Scan(src any) error {
	var s string

	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalid, src)
	}

	parsed, err := Parse(s)
	if err != nil {
		return err
	}

	*id = parsed
	return nil
}
