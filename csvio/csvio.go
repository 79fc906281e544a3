// Package csvio reads and writes secrets as CSV for interchange with
// other password managers.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/tmarsden/strongbox/vault"
)

// exportHeader is the header row of the native five column layout.
var exportHeader = []string{"Description", "Id", "PIN", "Email", "Notes"}

// oiSafeHeader is the header written by OI Safe 1.1.0 exports, which
// Import detects and folds into the native fields.
var oiSafeHeader = []string{"Category", "Description", "Website", "Username", "Password", "Notes"}

// Export writes the secrets to w in the native layout, header row
// first. Passwords are read through the exporting accessor, so every
// secret gains an EXPORTED log entry.
func Export(w io.Writer, secrets []*vault.Secret) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, s := range secrets {
		row := []string{
			s.Description(),
			s.Username(),
			s.PasswordForExport(),
			s.Email(),
			s.Note(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// Import reads secrets from r. The first row is always consumed as a
// header and decides the layout: native, OI Safe, or unknown. An
// unknown header still gets a best effort read in the native column
// order, with recognized false so the caller can warn the user to
// double check the result.
//
// A malformed row aborts the import but the secrets read so far are
// still returned.
func Import(r io.Reader) (secrets []*vault.Secret, recognized bool, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading csv header: %w", err)
	}

	native := headerMatches(header, exportHeader)
	oiSafe := !native && headerMatches(header, oiSafeHeader)

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return secrets, false, fmt.Errorf("reading csv row: %w", err)
		}

		var s *vault.Secret
		if oiSafe {
			s, err = secretFromOISafeRow(row)
		} else {
			s, err = secretFromNativeRow(row)
		}
		if err != nil {
			return secrets, false, err
		}
		secrets = append(secrets, s)
	}
	return secrets, native || oiSafe, nil
}

func headerMatches(header, want []string) bool {
	if len(header) < len(want) {
		return false
	}
	for i, w := range want {
		if !strings.EqualFold(header[i], w) {
			return false
		}
	}
	return true
}

func secretFromNativeRow(row []string) (*vault.Secret, error) {
	if len(row) < 5 {
		return nil, fmt.Errorf("csv row has %d columns, want 5", len(row))
	}
	s := vault.NewSecret(row[0])
	s.SetUsername(row[1])
	s.SetPasswordSilent(row[2])
	s.SetEmail(row[3])
	s.SetNote(row[4])
	return s, nil
}

func secretFromOISafeRow(row []string) (*vault.Secret, error) {
	if len(row) < 6 {
		return nil, fmt.Errorf("csv row has %d columns, want 6", len(row))
	}
	s := vault.NewSecret(row[1])
	s.SetUsername(row[3])
	s.SetPasswordSilent(row[4])
	s.SetEmail("")

	// The category, website and notes columns all fold into the note.
	var b strings.Builder
	b.WriteString(row[5])
	b.WriteString("\n\n")
	b.WriteString("Category: ")
	b.WriteString(row[0])
	b.WriteByte('\n')
	if row[2] != "" {
		b.WriteString("Website: ")
		b.WriteString(row[2])
		b.WriteByte('\n')
	}
	s.SetNote(b.String())
	return s, nil
}
