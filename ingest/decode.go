package ingest

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported catalog file format")
	ErrMalformed         = errors.New("malformed catalog document")
)

// FormatFromFilename picks the decoder by file extension.
func FormatFromFilename(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", errors.Wrapf(ErrUnsupportedFormat, "%q", name)
}

func Decode(format string, r io.Reader) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, errors.Wrap(ErrMalformed, err.Error())
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, errors.Wrap(ErrMalformed, err.Error())
		}
	case FormatXLSX:
		return decodeWorkbook(r)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", format)
	}
	return &doc, nil
}

// goodsColumns are the fixed leading columns of the goods sheet. Any other column is a parameter.
var goodsColumns = map[string]bool{
	"id": true, "category": true, "model": true, "name": true,
	"price": true, "price_rrc": true, "quantity": true,
}

func decodeWorkbook(r io.Reader) (*Document, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}
	defer f.Close()

	var doc Document

	shops, err := sheetRecords(f, "shop")
	if err != nil {
		return nil, err
	}
	for i, rec := range shops {
		id, err := parseUint(rec["id"])
		if err != nil {
			return nil, errors.Wrapf(ErrMalformed, "shop row %d: id %q", i+2, rec["id"])
		}
		doc.Shop = append(doc.Shop, Shop{ID: id, Name: rec["name"]})
	}

	cats, err := sheetRecords(f, "categories")
	if err != nil {
		return nil, err
	}
	for i, rec := range cats {
		id, err := parseUint(rec["id"])
		if err != nil {
			return nil, errors.Wrapf(ErrMalformed, "categories row %d: id %q", i+2, rec["id"])
		}
		doc.Categories = append(doc.Categories, Category{ID: id, Name: rec["name"]})
	}

	goods, err := sheetRecords(f, "goods")
	if err != nil {
		return nil, err
	}
	for i, rec := range goods {
		g, err := goodFromRecord(rec)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformed, "goods row %d: %v", i+2, err)
		}
		doc.Goods = append(doc.Goods, g)
	}
	return &doc, nil
}

func goodFromRecord(rec map[string]string) (Good, error) {
	var (
		g   Good
		err error
	)
	if g.ID, err = strconv.ParseInt(rec["id"], 10, 64); err != nil {
		return g, errors.Errorf("id %q", rec["id"])
	}
	if g.Category, err = parseUint(rec["category"]); err != nil {
		return g, errors.Errorf("category %q", rec["category"])
	}
	if g.Price, err = parseFloat(rec["price"]); err != nil {
		return g, errors.Errorf("price %q", rec["price"])
	}
	if g.PriceRRC, err = parseFloat(rec["price_rrc"]); err != nil {
		return g, errors.Errorf("price_rrc %q", rec["price_rrc"])
	}
	if rec["quantity"] != "" {
		if g.Quantity, err = strconv.Atoi(rec["quantity"]); err != nil {
			return g, errors.Errorf("quantity %q", rec["quantity"])
		}
	}
	g.Model = rec["model"]
	g.Name = rec["name"]

	for col, val := range rec {
		if goodsColumns[col] || val == "" {
			continue
		}
		if g.Parameters == nil {
			g.Parameters = make(map[string]Scalar)
		}
		g.Parameters[col] = Scalar(val)
	}
	return g, nil
}

// sheetRecords maps every data row of sheet to its header names. A missing sheet yields no rows.
func sheetRecords(f *excelize.File, sheet string) ([]map[string]string, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformed, "sheet %s: %v", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	var out []map[string]string
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec := make(map[string]string, len(header))
		for i, h := range header {
			if h == "" || i >= len(row) {
				continue
			}
			rec[h] = strings.TrimSpace(row[i])
		}
		out = append(out, rec)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseUint(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	return uint(v), err
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// Encode renders doc as JSON, used for the import snapshot.
func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, errors.Wrap(err, "encode catalog snapshot")
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}
