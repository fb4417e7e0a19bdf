// Package compressor stores the sparse tables of a compiled grammar in less space. Action, goto and
// prediction tables are mostly empty and many of their rows repeat.
package compressor

import (
	"fmt"
	"sort"

	"github.com/cnf/structhash"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("tabula.compressor")
}

// OriginalTable is a row-major table.
type OriginalTable struct {
	entries  []int
	rowCount int
	colCount int
}

func NewOriginalTable(entries []int, colCount int) (*OriginalTable, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("entries is empty")
	}
	if colCount <= 0 {
		return nil, fmt.Errorf("colCount must be >=1")
	}
	if len(entries)%colCount != 0 {
		return nil, fmt.Errorf("entries length or column count are incorrect; entries length: %v, column count: %v", len(entries), colCount)
	}

	return &OriginalTable{
		entries:  entries,
		rowCount: len(entries) / colCount,
		colCount: colCount,
	}, nil
}

func (orig *OriginalTable) row(row int) []int {
	return orig.entries[row*orig.colCount : (row+1)*orig.colCount]
}

type Compressor interface {
	Compress(orig *OriginalTable) error
	Lookup(row, col int) (int, error)
	OriginalTableSize() (int, int)
}

var (
	_ Compressor = &UniqueEntriesTable{}
	_ Compressor = &RowDisplacementTable{}
	_ Compressor = &Table{}
)

// UniqueEntriesTable keeps one copy of each distinct row. RowNums maps an original row to its copy.
type UniqueEntriesTable struct {
	UniqueEntries    []int
	RowNums          []int
	OriginalRowCount int
	OriginalColCount int
}

func NewUniqueEntriesTable() *UniqueEntriesTable {
	return &UniqueEntriesTable{}
}

func (tab *UniqueEntriesTable) Lookup(row, col int) (int, error) {
	if row < 0 || row >= tab.OriginalRowCount || col < 0 || col >= tab.OriginalColCount {
		return 0, fmt.Errorf("indexes are out of range: [%v, %v]", row, col)
	}
	return tab.UniqueEntries[tab.RowNums[row]*tab.OriginalColCount+col], nil
}

func (tab *UniqueEntriesTable) OriginalTableSize() (int, int) {
	return tab.OriginalRowCount, tab.OriginalColCount
}

func (tab *UniqueEntriesTable) UniqueRowCount() int {
	if tab.OriginalColCount == 0 {
		return 0
	}
	return len(tab.UniqueEntries) / tab.OriginalColCount
}

func (tab *UniqueEntriesTable) Compress(orig *OriginalTable) error {
	var uniqueEntries []int
	rowNums := make([]int, orig.rowCount)
	hash2RowNum := map[string]int{}
	for row := 0; row < orig.rowCount; row++ {
		entries := orig.row(row)
		h, err := structhash.Hash(entries, 1)
		if err != nil {
			return err
		}
		rowNum, ok := hash2RowNum[h]
		if !ok {
			rowNum = len(hash2RowNum)
			hash2RowNum[h] = rowNum
			uniqueEntries = append(uniqueEntries, entries...)
		}
		rowNums[row] = rowNum
	}

	tab.UniqueEntries = uniqueEntries
	tab.RowNums = rowNums
	tab.OriginalRowCount = orig.rowCount
	tab.OriginalColCount = orig.colCount

	return nil
}

// ForbiddenValue marks a slot of Bounds no row owns.
const ForbiddenValue = -1

// RowDisplacementTable overlays all rows onto one array. Row r starts at RowDisplacement[r], and a slot
// belongs to r only when Bounds holds r there; every other slot reads as EmptyValue.
type RowDisplacementTable struct {
	OriginalRowCount int
	OriginalColCount int
	EmptyValue       int
	Entries          []int
	Bounds           []int
	RowDisplacement  []int
}

func NewRowDisplacementTable(emptyValue int) *RowDisplacementTable {
	return &RowDisplacementTable{
		EmptyValue: emptyValue,
	}
}

func (tab *RowDisplacementTable) Lookup(row int, col int) (int, error) {
	if row < 0 || row >= tab.OriginalRowCount || col < 0 || col >= tab.OriginalColCount {
		return tab.EmptyValue, fmt.Errorf("indexes are out of range: [%v, %v]", row, col)
	}
	i := tab.RowDisplacement[row] + col
	if i >= len(tab.Bounds) || tab.Bounds[i] != row {
		return tab.EmptyValue, nil
	}
	return tab.Entries[i], nil
}

func (tab *RowDisplacementTable) OriginalTableSize() (int, int) {
	return tab.OriginalRowCount, tab.OriginalColCount
}

type rowInfo struct {
	rowNum      int
	nonEmptyCol []int
}

func (tab *RowDisplacementTable) Compress(orig *OriginalTable) error {
	infos := make([]rowInfo, orig.rowCount)
	for row := 0; row < orig.rowCount; row++ {
		infos[row].rowNum = row
		for col, v := range orig.row(row) {
			if v != tab.EmptyValue {
				infos[row].nonEmptyCol = append(infos[row].nonEmptyCol, col)
			}
		}
	}
	// Placing dense rows first leaves the gaps for the sparse ones.
	sort.SliceStable(infos, func(i int, j int) bool {
		return len(infos[i].nonEmptyCol) > len(infos[j].nonEmptyCol)
	})

	size := len(orig.entries)
	entries := make([]int, size)
	bounds := make([]int, size)
	for i := 0; i < size; i++ {
		entries[i] = tab.EmptyValue
		bounds[i] = ForbiddenValue
	}
	rowDisplacement := make([]int, orig.rowCount)
	bottom := 0
	next := 0
	for _, info := range infos {
		if len(info.nonEmptyCol) == 0 {
			continue
		}
		for !fits(bounds, next, info.nonEmptyCol) {
			next++
		}
		rowDisplacement[info.rowNum] = next
		for _, col := range info.nonEmptyCol {
			entries[next+col] = orig.entries[info.rowNum*orig.colCount+col]
			bounds[next+col] = info.rowNum
		}
		if b := next + orig.colCount; b > bottom {
			bottom = b
		}
		next++
	}

	tab.OriginalRowCount = orig.rowCount
	tab.OriginalColCount = orig.colCount
	tab.Entries = entries[:bottom]
	tab.Bounds = bounds[:bottom]
	tab.RowDisplacement = rowDisplacement

	return nil
}

func fits(bounds []int, displacement int, cols []int) bool {
	for _, col := range cols {
		if bounds[displacement+col] != ForbiddenValue {
			return false
		}
	}
	return true
}

// Table first merges identical rows and then overlays the remaining rows.
type Table struct {
	rows    *UniqueEntriesTable
	entries *RowDisplacementTable
}

func NewTable(emptyValue int) *Table {
	return &Table{
		rows:    NewUniqueEntriesTable(),
		entries: NewRowDisplacementTable(emptyValue),
	}
}

func (tab *Table) Compress(orig *OriginalTable) error {
	err := tab.rows.Compress(orig)
	if err != nil {
		return err
	}
	unique, err := NewOriginalTable(tab.rows.UniqueEntries, orig.colCount)
	if err != nil {
		return err
	}
	err = tab.entries.Compress(unique)
	if err != nil {
		return err
	}

	tracer().Debugf("compressed a %vx%v table: %v unique rows, %v entries", orig.rowCount, orig.colCount, tab.rows.UniqueRowCount(), len(tab.entries.Entries))

	return nil
}

func (tab *Table) Lookup(row, col int) (int, error) {
	if row < 0 || row >= tab.rows.OriginalRowCount || col < 0 || col >= tab.rows.OriginalColCount {
		return tab.entries.EmptyValue, fmt.Errorf("indexes are out of range: [%v, %v]", row, col)
	}
	return tab.entries.Lookup(tab.rows.RowNums[row], col)
}

func (tab *Table) OriginalTableSize() (int, int) {
	return tab.rows.OriginalTableSize()
}

// EntryCount returns the number of slots the compressed table occupies.
func (tab *Table) EntryCount() int {
	return len(tab.entries.Entries)
}
