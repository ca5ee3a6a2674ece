package models

// Patch -> perubahan field dangkal, key = nama field di JSON
type Patch map[string]interface{}

// Keys -> daftar key pada patch
func (p Patch) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	return keys
}

// Without -> salinan patch tanpa key yang disebut
func (p Patch) Without(keys ...string) Patch {
	out := make(Patch, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
