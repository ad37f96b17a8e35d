// Package codec encodes task payloads and results. MessagePack is the
// default; JSON is available for stores that are inspected by hand.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/xraph/itemcast"
)

// Codec serializes values to and from bytes.
type Codec interface {
	// Marshal encodes v.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error

	// Name returns the codec identifier, "msgpack" or "json".
	Name() string
}

// Codec names.
const (
	NameMsgpack = "msgpack"
	NameJSON    = "json"
)

// Msgpack encodes values as MessagePack.
type Msgpack struct{}

func (Msgpack) Marshal(v any) ([]byte, error) { return msgpack.Marshal(v) }

func (Msgpack) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

func (Msgpack) Name() string { return NameMsgpack }

// JSON encodes values as JSON.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (JSON) Name() string { return NameJSON }

// Default returns the MessagePack codec.
func Default() Codec { return Msgpack{} }

// ByName returns the codec registered under name. The empty name selects
// the default.
func ByName(name string) (Codec, error) {
	switch name {
	case NameMsgpack, "":
		return Msgpack{}, nil
	case NameJSON:
		return JSON{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %q", itemcast.ErrInvalidSetting, name)
	}
}
