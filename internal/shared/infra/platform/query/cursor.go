package query

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

var cursorEncoding = base64.RawURLEncoding

// Cursor identifica la última fila servida. Para el orden canónico basta con
// (CreatedAt, ID); para otros órdenes Sort y Value completan la clave compuesta.
type Cursor struct {
	CreatedAt time.Time
	ID        string
	Sort      string
	Value     interface{} // float64 o string según el orden
}

// cursorWire es la forma serializada. Al ser JSON, el id puede contener
// cualquier carácter sin necesidad de escapar delimitadores.
type cursorWire struct {
	T  string      `json:"t"`
	ID string      `json:"id"`
	S  string      `json:"s,omitempty"`
	V  interface{} `json:"v"` // sin omitempty: 0 y "" son claves válidas
}

// EncodeCursor codifica la posición canónica (createdAt, id).
func EncodeCursor(createdAt time.Time, id string) string {
	return Cursor{CreatedAt: createdAt, ID: id}.Encode()
}

// Encode produce un token opaco y apto para query strings.
func (c Cursor) Encode() string {
	w := cursorWire{
		T:  c.CreatedAt.UTC().Format(time.RFC3339Nano),
		ID: c.ID,
		S:  c.Sort,
		V:  c.Value,
	}
	data, err := json.Marshal(w)
	if err != nil {
		// Value solo admite números y cadenas
		w.V = nil
		data, _ = json.Marshal(w)
	}
	return cursorEncoding.EncodeToString(data)
}

// DecodeCursor devuelve nil si el token está vacío o corrupto. Quien llama
// debe tratar nil como "sin cursor" y empezar desde el principio.
func DecodeCursor(token string) *Cursor {
	if token == "" {
		return nil
	}
	data, err := cursorEncoding.DecodeString(token)
	if err != nil {
		return nil
	}

	var w cursorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil
	}
	if w.T == "" || w.ID == "" {
		return nil
	}

	createdAt, err := time.Parse(time.RFC3339Nano, w.T)
	if err != nil {
		return nil
	}

	switch w.V.(type) {
	case nil, float64, string:
	default:
		return nil
	}

	return &Cursor{
		CreatedAt: createdAt.UTC(),
		ID:        w.ID,
		Sort:      w.S,
		Value:     w.V,
	}
}
