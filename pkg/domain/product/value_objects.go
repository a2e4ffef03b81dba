package product

// Type classifies what kind of deliverable a product is.
type Type string

const (
	TypeWeb     Type = "WEB"
	TypeRepo    Type = "REPO"
	TypeImage   Type = "IMAGE"
	TypeAndroid Type = "ANDROID"
	TypeIOS     Type = "IOS"
	TypeBinary  Type = "BINARY"
)

// IsValid reports whether the type is a known value.
func (t Type) IsValid() bool {
	switch t {
	case TypeWeb, TypeRepo, TypeImage, TypeAndroid, TypeIOS, TypeBinary:
		return true
	}
	return false
}

// Criticality expresses business impact of a product.
type Criticality string

const (
	CriticalityCritical Criticality = "CRITICAL"
	CriticalityHigh     Criticality = "HIGH"
	CriticalityMedium   Criticality = "MEDIUM"
	CriticalityLow      Criticality = "LOW"
)

// IsValid reports whether the criticality is a known value.
func (c Criticality) IsValid() bool {
	switch c {
	case CriticalityCritical, CriticalityHigh, CriticalityMedium, CriticalityLow:
		return true
	}
	return false
}
