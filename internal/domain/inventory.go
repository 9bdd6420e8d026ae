package domain

type StockLevel struct {
	ProductID string `json:"product_id"`
	VendorID  string `json:"vendor_id"`
	Available int    `json:"available"`
	Reserved  int    `json:"reserved"`
}
