package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeDocument accepts both the object shape and the legacy bare product
// array. Empty input decodes to an empty Document.
func decodeDocument(raw []byte) (Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return emptyDocument(), nil
	}

	var doc Document
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &doc.Products); err != nil {
			return Document{}, fmt.Errorf("decode legacy product array: %w", err)
		}
	} else if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("decode inventory document: %w", err)
	}

	doc.normalize()
	return doc, nil
}

func encodeDocument(doc Document) ([]byte, error) {
	doc.normalize()
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Stored records go through Int and Float so files written by older
// dashboards, which kept request values verbatim ("2", 2.0, null), still load.

func (p *Product) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       Int    `json:"id"`
		Name     string `json:"name"`
		Price    Float  `json:"price"`
		Quantity Int    `json:"quantity"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = Product{
		ID:       int64(raw.ID),
		Name:     raw.Name,
		Price:    float64(raw.Price),
		Quantity: int64(raw.Quantity),
	}
	return nil
}

func (s *Sale) UnmarshalJSON(b []byte) error {
	var raw struct {
		SaleID       Int    `json:"saleId"`
		ProductID    Int    `json:"productId"`
		ProductName  string `json:"productName"`
		QuantitySold Int    `json:"quantitySold"`
		Date         string `json:"date"`
		Amount       Float  `json:"amount"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = Sale{
		SaleID:       int64(raw.SaleID),
		ProductID:    int64(raw.ProductID),
		ProductName:  raw.ProductName,
		QuantitySold: int64(raw.QuantitySold),
		Date:         raw.Date,
		Amount:       float64(raw.Amount),
	}
	return nil
}

func (r *Rental) UnmarshalJSON(b []byte) error {
	var raw struct {
		RentalID     Int    `json:"rentalId"`
		ProductID    Int    `json:"productId"`
		ProductName  string `json:"productName"`
		RenterName   string `json:"renterName"`
		RentDate     string `json:"rentDate"`
		ReturnDate   string `json:"returnDate"`
		PhoneNumber  string `json:"phoneNumber"`
		Address      string `json:"address"`
		AmountPaid   Float  `json:"amountPaid"`
		Status       string `json:"status"`
		ReturnedDate string `json:"returnedDate"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Rental{
		RentalID:     int64(raw.RentalID),
		ProductID:    int64(raw.ProductID),
		ProductName:  raw.ProductName,
		RenterName:   raw.RenterName,
		RentDate:     raw.RentDate,
		ReturnDate:   raw.ReturnDate,
		PhoneNumber:  raw.PhoneNumber,
		Address:      raw.Address,
		AmountPaid:   float64(raw.AmountPaid),
		Status:       raw.Status,
		ReturnedDate: raw.ReturnedDate,
	}
	return nil
}
