package warehouses

// Warehouse is a physical or logical stock location. Exactly one warehouse is
// flagged as the distribution warehouse, representing goods in transit.
type Warehouse struct {
	ID             int64
	Code           string
	Name           string
	Address        string
	IsDistribution bool
}
