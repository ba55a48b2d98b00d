package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/crypto/blake2b"

	"github.com/alem-hub/rank-explorer/internal/domain/student"
)

// ExportHeader is the column order of downloaded files.
var ExportHeader = []string{ColumnRegdNo, ColumnName, ColumnState, ColumnCGPA, ColumnRank}

// WriteCSV writes records with ExportHeader. CGPA uses the shortest
// representation that parses back to the same value.
func WriteCSV(w io.Writer, records []student.Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(ExportHeader))
	for _, r := range records {
		row[0] = r.RegistrationID
		row[1] = r.Name
		row[2] = r.State
		row[3] = strconv.FormatFloat(r.CGPA, 'f', -1, 64)
		row[4] = strconv.Itoa(r.Rank)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", r.RegistrationID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Export renders records to memory and returns the body with its ETag.
func Export(records []student.Record) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return nil, "", err
	}
	body := buf.Bytes()
	return body, ETag(body), nil
}

// ETag returns a strong entity tag: quoted hex BLAKE2b-256 of body.
func ETag(body []byte) string {
	sum := blake2b.Sum256(body)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
