package media

// Owner is implemented by any entity that can own assets. Only the type tag
// and id are stored, never a typed reference.
type Owner interface {
	OwnerType() string
	OwnerID() string
}

// OwnerRef is a plain Owner value.
type OwnerRef struct {
	Type string
	ID   string
}

func (o OwnerRef) OwnerType() string { return o.Type }
func (o OwnerRef) OwnerID() string   { return o.ID }

func validOwner(o Owner) bool {
	return o != nil && o.OwnerType() != "" && o.OwnerID() != ""
}
