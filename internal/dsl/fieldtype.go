package dsl

// FieldType is the storage type of a field.
type FieldType string

const (
	TypeString     FieldType = "string"
	TypeText       FieldType = "text"
	TypeInteger    FieldType = "integer"
	TypeFloat      FieldType = "float"
	TypeBoolean    FieldType = "boolean"
	TypeDateTime   FieldType = "datetime"
	TypeDate       FieldType = "date"
	TypeUUID       FieldType = "uuid"
	TypeURL        FieldType = "url"
	TypeEmail      FieldType = "email"
	TypeJSON       FieldType = "json"
	TypeForeignKey FieldType = "foreign_key"
	TypeManyToMany FieldType = "many_to_many"
)

var fieldTypes = []FieldType{
	TypeString, TypeText, TypeInteger, TypeFloat, TypeBoolean,
	TypeDateTime, TypeDate, TypeUUID, TypeURL, TypeEmail,
	TypeJSON, TypeForeignKey, TypeManyToMany,
}

// FieldTypes returns every supported type in display order.
func FieldTypes() []FieldType {
	out := make([]FieldType, len(fieldTypes))
	copy(out, fieldTypes)
	return out
}

// Valid reports whether t is a supported type.
func (t FieldType) Valid() bool {
	for _, ft := range fieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// IsRelation reports whether t points at another model.
func (t FieldType) IsRelation() bool {
	return t == TypeForeignKey || t == TypeManyToMany
}
