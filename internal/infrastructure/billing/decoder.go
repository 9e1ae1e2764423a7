package billing

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/studyon/coursehub/internal/core/domain"
)

// Decoder turns raw bodies into typed records. It checks structure only:
// valid JSON and the `validate` tags of the target shape. Business rules are
// not its concern.
type Decoder struct {
	v *validator.Validate
}

// NewDecoder returns a Decoder with its own validator instance.
func NewDecoder() *Decoder {
	return &Decoder{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Decode unmarshals raw into target (a pointer to a struct or slice) and
// validates the result. Failures wrap domain.ErrMalformedResponse.
func (d *Decoder) Decode(raw []byte, target any) error {
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	rv := reflect.Indirect(reflect.ValueOf(target))
	switch rv.Kind() {
	case reflect.Struct:
		if err := d.v.Struct(target); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
		}
	case reflect.Slice:
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i)
			if reflect.Indirect(elem).Kind() != reflect.Struct {
				continue
			}
			if err := d.v.Struct(elem.Interface()); err != nil {
				return fmt.Errorf("%w: item %d: %v", domain.ErrMalformedResponse, i, err)
			}
		}
	}
	return nil
}

// DecodeMap decodes an untyped JSON object.
func (d *Decoder) DecodeMap(raw []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: expected a json object", domain.ErrMalformedResponse)
	}
	return out, nil
}
