// Package abi projects typed declarations into the contract interface description.
package abi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Property is one named, typed entry of the interface description.
// Components is nil for types without inner structure.
type Property struct {
	Name       string     `json:"name" msgpack:"name"`
	Type       string     `json:"type" msgpack:"type"`
	Components []Property `json:"components" msgpack:"components"`
}

// Function describes a callable entry point.
type Function struct {
	Type    string     `json:"type" msgpack:"type"`
	Name    string     `json:"name" msgpack:"name"`
	Inputs  []Property `json:"inputs" msgpack:"inputs"`
	Outputs []Property `json:"outputs" msgpack:"outputs"`
	Purity  string     `json:"purity,omitempty" msgpack:"purity,omitempty"`
}

// Program is the interface description of one package.
type Program struct {
	Package   string     `json:"package" msgpack:"package"`
	Types     []Property `json:"types" msgpack:"types"`
	Functions []Function `json:"functions" msgpack:"functions"`
}

// WriteJSON writes p as indented JSON, the format consumed by contract tooling.
func (p *Program) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("abi: encode json: %w", err)
	}
	return nil
}

// ReadJSON decodes a program written by WriteJSON.
func ReadJSON(r io.Reader) (*Program, error) {
	var p Program
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("abi: decode json: %w", err)
	}
	return &p, nil
}

// MarshalMsgpack encodes p compactly for the driver cache.
func (p *Program) MarshalMsgpack() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	type plain Program
	if err := enc.Encode((*plain)(p)); err != nil {
		return nil, fmt.Errorf("abi: encode msgpack: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalMsgpack decodes data produced by MarshalMsgpack.
func (p *Program) UnmarshalMsgpack(data []byte) error {
	type plain Program
	if err := msgpack.Unmarshal(data, (*plain)(p)); err != nil {
		return fmt.Errorf("abi: decode msgpack: %w", err)
	}
	return nil
}

// Function returns the entry named name.
func (p *Program) Function(name string) (Function, bool) {
	for _, fn := range p.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return Function{}, false
}
