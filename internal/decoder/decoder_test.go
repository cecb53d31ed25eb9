package decoder

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xuri/excelize/v2"
)

func TestCSVDecoder_Decode(t *testing.T) {
	csv := `transaction_id,amount,currency
T1,100.50,USD
T2,200.75,USD
`

	table, err := (&CSVDecoder{}).Decode(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, []string{"transaction_id", "amount", "currency"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "T1", table.Rows[0]["transaction_id"])
	assert.Equal(t, "200.75", table.Rows[1]["amount"])
}

func TestCSVDecoder_SniffsDelimiter(t *testing.T) {
	cases := map[string]string{
		"semicolon": "transaction_id;amount\nT1;100\n",
		"tab":       "transaction_id\tamount\nT1\t100\n",
		"pipe":      "transaction_id|amount\nT1|100\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			table, err := (&CSVDecoder{}).Decode(strings.NewReader(content))
			require.NoError(t, err)
			require.Len(t, table.Rows, 1)
			assert.Equal(t, "T1", table.Rows[0]["transaction_id"])
			assert.Equal(t, "100", table.Rows[0]["amount"])
		})
	}
}

func TestCSVDecoder_PadsShortRowsAndDropsBlankRows(t *testing.T) {
	csv := "transaction_id,amount,status\nT1,100\n,,\nT2,200,done\n"

	table, err := (&CSVDecoder{}).Decode(strings.NewReader(csv))
	require.NoError(t, err)

	require.Len(t, table.Rows, 2)
	assert.Equal(t, "", table.Rows[0]["status"])
	assert.Equal(t, "done", table.Rows[1]["status"])
}

func TestCSVDecoder_EmptyInput(t *testing.T) {
	table, err := (&CSVDecoder{}).Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.True(t, table.Empty())
}

func TestXLSXDecoder_Decode(t *testing.T) {
	workbook := excelize.NewFile()
	sheet := workbook.GetSheetName(0)
	// A banner row above the real header, as some providers export.
	require.NoError(t, workbook.SetCellValue(sheet, "A1", "Statement Export"))
	require.NoError(t, workbook.SetSheetRow(sheet, "A2", &[]interface{}{"transaction_id", "amount"}))
	require.NoError(t, workbook.SetSheetRow(sheet, "A3", &[]interface{}{"T1", "100.50"}))
	require.NoError(t, workbook.SetSheetRow(sheet, "A4", &[]interface{}{"T2", "200"}))

	var buf bytes.Buffer
	require.NoError(t, workbook.Write(&buf))

	table, err := (&XLSXDecoder{}).Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"transaction_id", "amount"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "T1", table.Rows[0]["transaction_id"])
}

func TestForFile(t *testing.T) {
	d, err := ForFile("statement.csv")
	require.NoError(t, err)
	assert.IsType(t, &CSVDecoder{}, d)

	d, err = ForFile("Statement.XLSX")
	require.NoError(t, err)
	assert.IsType(t, &XLSXDecoder{}, d)

	_, err = ForFile("archive.zip")
	assert.Error(t, err)
}
