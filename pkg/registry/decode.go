// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Decode decodes the data of definition id into out, which must be a
// pointer. Struct fields are matched by their json tags.
func (r *Registry) Decode(id string, out any) error {
	md, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	return DecodeData(md.Data, out)
}

// DecodeAs decodes the data of definition id into a new T.
func DecodeAs[T any](r *Registry, id string) (*T, error) {
	var out T
	if err := r.Decode(id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecodeData decodes a definition tree into out.
func DecodeData(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return fmt.Errorf("failed to decode definition: %w", err)
	}
	return nil
}
