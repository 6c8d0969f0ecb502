package session

import "encoding/json"

// Codec turns user data into bytes and back. Stores keep user data encoded so
// every Verify decodes a fresh value that shares nothing with the store.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec encodes user data with encoding/json. Only exported fields
// survive a round trip.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Identity is the projection for stores whose login input is the user data.
func Identity[T any](in T) T {
	return in
}

func decodeUser[U any](c Codec, data []byte) (U, error) {
	var u U
	if err := c.Unmarshal(data, &u); err != nil {
		var zero U
		return zero, err
	}
	return u, nil
}
