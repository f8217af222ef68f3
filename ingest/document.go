// Package ingest loads supplier catalog documents into the catalog tables.
package ingest

import (
	"encoding/json"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Document is a decoded catalog upload.
type Document struct {
	Shop       []Shop     `json:"shop" yaml:"shop"`
	Categories []Category `json:"categories" yaml:"categories"`
	Goods      []Good     `json:"goods" yaml:"goods"`
}

type Shop struct {
	ID   uint   `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type Category struct {
	ID   uint   `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type Good struct {
	ID         int64             `json:"id" yaml:"id"`
	Category   uint              `json:"category" yaml:"category"`
	Model      string            `json:"model" yaml:"model"`
	Name       string            `json:"name" yaml:"name"`
	Price      float64           `json:"price" yaml:"price"`
	PriceRRC   float64           `json:"price_rrc" yaml:"price_rrc"`
	Quantity   int               `json:"quantity" yaml:"quantity"`
	Parameters map[string]Scalar `json:"parameters" yaml:"parameters"`
}

// ShopID is the supplier the document belongs to; only the first shop entry counts.
func (d *Document) ShopID() (uint, bool) {
	if len(d.Shop) == 0 {
		return 0, false
	}
	return d.Shop[0].ID, true
}

func (d *Document) ParameterCount() int {
	n := 0
	for _, g := range d.Goods {
		n += len(g.Parameters)
	}
	return n
}

// Scalar is a parameter value. Numbers and booleans are kept in their textual form.
type Scalar string

func (s *Scalar) UnmarshalYAML(node *yaml.Node) error {
	*s = Scalar(node.Value)
	return nil
}

func (s *Scalar) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = Scalar(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err == nil {
		*s = Scalar(num.String())
		return nil
	}
	var flag bool
	if err := json.Unmarshal(b, &flag); err != nil {
		return err
	}
	*s = Scalar(strconv.FormatBool(flag))
	return nil
}
