package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleYAML = `
shop:
  - id: 1
    name: Svyaznoy
categories:
  - id: 224
    name: Smartphones
goods:
  - id: 4216292
    category: 224
    model: apple/iphone/xs-max
    name: Smartphone Apple iPhone XS Max 512GB
    price: 110000
    price_rrc: 116990
    quantity: 14
    parameters:
      "Screen (inch)": 6.5
      "Color": gold
`

func TestFormatFromFilename(t *testing.T) {
	for name, want := range map[string]string{
		"shop.yaml": FormatYAML, "shop.YML": FormatYAML, "shop.json": FormatJSON, "shop.xlsx": FormatXLSX,
	} {
		got, err := FormatFromFilename(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := FormatFromFilename("shop.csv")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecode_YAML(t *testing.T) {
	doc, err := Decode(FormatYAML, strings.NewReader(sampleYAML))
	require.NoError(t, err)

	id, ok := doc.ShopID()
	require.True(t, ok)
	assert.Equal(t, uint(1), id)
	require.Len(t, doc.Goods, 1)

	g := doc.Goods[0]
	assert.Equal(t, int64(4216292), g.ID)
	assert.Equal(t, uint(224), g.Category)
	assert.Equal(t, 110000.0, g.Price)
	assert.Equal(t, Scalar("6.5"), g.Parameters["Screen (inch)"])
	assert.Equal(t, Scalar("gold"), g.Parameters["Color"])
	assert.Equal(t, 2, doc.ParameterCount())
}

func TestDecode_JSON(t *testing.T) {
	body := `{"shop":[{"id":3,"name":"s"}],"categories":[{"id":1,"name":"c"}],
	"goods":[{"id":9,"category":1,"name":"n","price":1.5,"quantity":2,"parameters":{"ram":8,"nfc":true}}]}`
	doc, err := Decode(FormatJSON, strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, doc.Goods, 1)
	assert.Equal(t, Scalar("8"), doc.Goods[0].Parameters["ram"])
	assert.Equal(t, Scalar("true"), doc.Goods[0].Parameters["nfc"])
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(FormatJSON, strings.NewReader(`{"shop": 1`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Decode("csv", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func workbook(t *testing.T, goods [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "shop"))
	require.NoError(t, f.SetSheetRow("shop", "A1", &[]any{"id", "name"}))
	require.NoError(t, f.SetSheetRow("shop", "A2", &[]any{1, "Svyaznoy"}))

	_, err := f.NewSheet("categories")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("categories", "A1", &[]any{"id", "name"}))
	require.NoError(t, f.SetSheetRow("categories", "A2", &[]any{224, "Smartphones"}))

	_, err = f.NewSheet("goods")
	require.NoError(t, err)
	for i, row := range goods {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("goods", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestDecode_XLSX(t *testing.T) {
	buf := workbook(t, [][]any{
		{"id", "category", "model", "name", "price", "price_rrc", "quantity", "Color", "RAM"},
		{4216292, 224, "apple/xs", "iPhone XS", 110000, 116990, 14, "gold", ""},
	})

	doc, err := Decode(FormatXLSX, buf)
	require.NoError(t, err)
	require.Len(t, doc.Shop, 1)
	assert.Equal(t, "Svyaznoy", doc.Shop[0].Name)
	require.Len(t, doc.Categories, 1)
	assert.Equal(t, uint(224), doc.Categories[0].ID)
	require.Len(t, doc.Goods, 1)

	g := doc.Goods[0]
	assert.Equal(t, "iPhone XS", g.Name)
	assert.Equal(t, 14, g.Quantity)
	assert.Equal(t, 116990.0, g.PriceRRC)
	assert.Equal(t, map[string]Scalar{"Color": "gold"}, g.Parameters)
}

func TestDecode_XLSXBadNumber(t *testing.T) {
	buf := workbook(t, [][]any{
		{"id", "category", "name", "price"},
		{1, 224, "x", "cheap"},
	})
	_, err := Decode(FormatXLSX, buf)
	assert.ErrorIs(t, err, ErrMalformed)
}
