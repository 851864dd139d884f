package customers

// Customer is the receiving party of a direct customer transfer.
type Customer struct {
	ID      int64
	Code    string
	Name    string
	Address string
	Phone   string
}

// Expedition is the courier carrying a customer shipment.
type Expedition struct {
	ID    int64
	Name  string
	Phone string
}
