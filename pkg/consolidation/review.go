package consolidation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	colGroupID     = "group_id"
	colProductID   = "masterproductid"
	colProductName = "productname"
	colIsCanonical = "is_canonical"
)

// ReviewGroup is one connected component of likely duplicates.
type ReviewGroup struct {
	ID      int64
	Members []Member
}

// ReadReviewCSV parses a reviewed duplicate file with the header
// group_id,masterproductid,productname[,is_canonical]. Members keep file order.
func ReadReviewCSV(r io.Reader) (map[int64][]Member, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("review csv: missing header")
		}
		return nil, fmt.Errorf("review csv: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range []string{colGroupID, colProductID, colProductName} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("review csv: missing column %q", required)
		}
	}
	canonicalCol, hasCanonical := cols[colIsCanonical]

	groups := make(map[int64][]Member)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("review csv line %d: %w", line, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		raw := func(col int) string {
			if col >= len(record) {
				return ""
			}
			return record[col]
		}
		field := func(col int) string { return strings.TrimSpace(raw(col)) }

		groupID, err := strconv.ParseInt(field(cols[colGroupID]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("review csv line %d: group_id: %w", line, err)
		}
		productID, err := strconv.ParseInt(field(cols[colProductID]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("review csv line %d: masterproductid: %w", line, err)
		}

		// names are kept as written; their length picks the representative
		m := Member{ProductID: productID, DisplayName: raw(cols[colProductName])}
		if hasCanonical {
			if flag := field(canonicalCol); flag != "" {
				if m.IsCanonical, err = strconv.ParseBool(flag); err != nil {
					return nil, fmt.Errorf("review csv line %d: is_canonical: %w", line, err)
				}
			}
		}
		groups[groupID] = append(groups[groupID], m)
	}
	return groups, nil
}

// WriteReviewCSV writes groups in the format ReadReviewCSV reads.
func WriteReviewCSV(w io.Writer, groups []ReviewGroup) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{colGroupID, colProductID, colProductName}); err != nil {
		return err
	}
	for _, g := range groups {
		for _, m := range g.Members {
			record := []string{strconv.FormatInt(g.ID, 10), strconv.FormatInt(m.ProductID, 10), m.DisplayName}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}
