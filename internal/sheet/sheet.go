// Package sheet reads and writes the point workbooks. The input format is a
// single sheet with a header row of 주소 (address), 장소명 (place name),
// 타입 (type) and 순서 (order); only the address column is mandatory.
package sheet

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/placemap/internal/place"
)

// Header column names recognized in the input workbook.
const (
	ColAddress = "주소"
	ColName    = "장소명"
	ColType    = "타입"
	ColOrder   = "순서"
)

// Extra columns written alongside the input ones in resolved output.
const (
	colLongitude = "경도"
	colLatitude  = "위도"
	colResolved  = "보정 주소"
	colStatus    = "상태"
)

// Load reads the first sheet of the workbook at path into records. A missing
// 주소 column aborts the load; every other column is optional and filled
// with its default.
func Load(path string) ([]place.Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("sheet: workbook has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("sheet: workbook is empty")
	}

	cols := headerIndex(sheet.Rows[0])
	addrIdx, ok := cols[ColAddress]
	if !ok {
		return nil, eris.Errorf("sheet: required column %q not found in header", ColAddress)
	}

	nameIdx := optionalColumn(cols, ColName)
	typeIdx := optionalColumn(cols, ColType)
	orderIdx := optionalColumn(cols, ColOrder)

	var records []place.Record
	for i, row := range sheet.Rows[1:] {
		addr := strings.TrimSpace(cellAt(row, addrIdx))
		if addr == "" {
			continue
		}

		name := cellAt(row, nameIdx)
		tag := place.ParseTypeTag(cellAt(row, typeIdx))
		order := i
		if n, err := strconv.Atoi(strings.TrimSpace(cellAt(row, orderIdx))); err == nil {
			order = n
		}

		records = append(records, place.New(addr, name, tag, order))
	}

	zap.L().Info("sheet: loaded workbook",
		zap.String("path", path),
		zap.Int("rows", len(records)))
	return records, nil
}

// headerIndex maps trimmed header names to column positions.
func headerIndex(row *xlsx.Row) map[string]int {
	cols := make(map[string]int)
	for j, cell := range row.Cells {
		name := strings.TrimSpace(cell.String())
		if name != "" {
			cols[name] = j
		}
	}
	return cols
}

// optionalColumn returns the mapped index or -1 when the header lacks the
// column.
func optionalColumn(cols map[string]int, name string) int {
	if idx, ok := cols[name]; ok {
		return idx
	}
	return -1
}

// cellAt returns the cell text at index idx, tolerating short rows and
// absent columns.
func cellAt(row *xlsx.Row, idx int) string {
	if idx < 0 || idx >= len(row.Cells) {
		return ""
	}
	return row.Cells[idx].String()
}

// WriteTemplate writes a starter workbook with the expected header and one
// guide row.
func WriteTemplate(path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("places")
	if err != nil {
		return eris.Wrap(err, "sheet: add template sheet")
	}

	header := sheet.AddRow()
	for _, col := range []string{ColAddress, ColName, ColType, ColOrder} {
		header.AddCell().SetString(col)
	}

	guide := sheet.AddRow()
	guide.AddCell().SetString("서울특별시 중구 세종대로 110")
	guide.AddCell().SetString("서울시청")
	guide.AddCell().SetString("A")
	guide.AddCell().SetString("1")

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "sheet: save template")
	}
	return nil
}

// WriteResolved writes records with their resolution results to a workbook.
func WriteResolved(path string, records []place.Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("places")
	if err != nil {
		return eris.Wrap(err, "sheet: add output sheet")
	}

	header := sheet.AddRow()
	for _, col := range []string{ColAddress, ColName, ColType, ColOrder, colLongitude, colLatitude, colResolved, colStatus} {
		header.AddCell().SetString(col)
	}

	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.RawAddress)
		row.AddCell().SetString(r.DisplayName)
		row.AddCell().SetString(string(r.Type))
		row.AddCell().SetString(strconv.Itoa(r.Order))
		if r.Resolved {
			row.AddCell().SetString(strconv.FormatFloat(r.Longitude, 'f', -1, 64))
			row.AddCell().SetString(strconv.FormatFloat(r.Latitude, 'f', -1, 64))
			row.AddCell().SetString(r.ResolvedAddress)
			row.AddCell().SetString("OK")
		} else {
			row.AddCell().SetString("")
			row.AddCell().SetString("")
			row.AddCell().SetString("")
			row.AddCell().SetString("미확인")
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "sheet: save output")
	}
	return nil
}
