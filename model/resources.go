package model

// ResourceType is one of the gatherable resources.
type ResourceType string

const (
	Food  ResourceType = "food"
	Wood  ResourceType = "wood"
	Stone ResourceType = "stone"
	Metal ResourceType = "metal"
)

// AllResourceTypes returns all resource types in deterministic order.
func AllResourceTypes() []ResourceType {
	return []ResourceType{Food, Wood, Stone, Metal}
}

// ResourceVector maps a resource type to an amount or a rate.
// Missing keys read as zero and every mutator keeps components non-negative.
type ResourceVector map[ResourceType]float64

// NewResourceVector builds a vector from food, wood, stone, metal in that order.
func NewResourceVector(food, wood, stone, metal float64) ResourceVector {
	v := make(ResourceVector, 4)
	v.Set(Food, food)
	v.Set(Wood, wood)
	v.Set(Stone, stone)
	v.Set(Metal, metal)
	return v
}

// Get returns the component for r.
func (v ResourceVector) Get(r ResourceType) float64 {
	if v == nil {
		return 0
	}
	return v[r]
}

// Set stores x for r, clamped at zero.
func (v ResourceVector) Set(r ResourceType, x float64) {
	if x < 0 {
		x = 0
	}
	v[r] = x
}

// Add accumulates o into v.
func (v ResourceVector) Add(o ResourceVector) {
	for _, r := range AllResourceTypes() {
		v.Set(r, v.Get(r)+o.Get(r))
	}
}

// Sub subtracts o from v, clamping each component at zero.
func (v ResourceVector) Sub(o ResourceVector) {
	for _, r := range AllResourceTypes() {
		v.Set(r, v.Get(r)-o.Get(r))
	}
}

// Scaled returns a copy of v multiplied by k (k < 0 yields zeros).
func (v ResourceVector) Scaled(k float64) ResourceVector {
	out := make(ResourceVector, 4)
	for _, r := range AllResourceTypes() {
		out.Set(r, v.Get(r)*k)
	}
	return out
}

// Clone returns an independent copy.
func (v ResourceVector) Clone() ResourceVector {
	return v.Scaled(1)
}

// Total sums all components.
func (v ResourceVector) Total() float64 {
	var t float64
	for _, r := range AllResourceTypes() {
		t += v.Get(r)
	}
	return t
}

// Covers reports whether v holds at least o in every component.
func (v ResourceVector) Covers(o ResourceVector) bool {
	for _, r := range AllResourceTypes() {
		if v.Get(r) < o.Get(r) {
			return false
		}
	}
	return true
}
