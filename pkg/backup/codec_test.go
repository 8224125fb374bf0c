// pkg/backup/codec_test.go

package backup

import (
	"testing"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable_FourColumn(t *testing.T) {
	table := "name,url,username,password\n" +
		`"Mail","https://mail.example.com","a@x.com","p1"` + "\n" +
		`"Bank","https://bank.example.com","b@x.com","p2"` + "\n"

	rows := ParseTable(table)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{Name: "Mail", URL: "https://mail.example.com", Username: "a@x.com", Password: "p1"}, rows[0])
	assert.Equal(t, Row{Name: "Bank", URL: "https://bank.example.com", Username: "b@x.com", Password: "p2"}, rows[1])
}

func TestParseTable_ThreeColumnDerivesName(t *testing.T) {
	table := "url,username,password\n" +
		"https://www.forge.example.org/login,dev@x.com,s3cret\n"

	rows := ParseTable(table)
	require.Len(t, rows, 1)
	assert.Equal(t, "forge.example.org", rows[0].Name)
	assert.Equal(t, "https://www.forge.example.org/login", rows[0].URL)
}

func TestParseTable_DelimiterInsideQuotes(t *testing.T) {
	table := "name,url,username,password\n" +
		`"Shop, Inc",https://shop.example,c@x.com,"pa,ss"` + "\n"

	rows := ParseTable(table)
	require.Len(t, rows, 1)
	assert.Equal(t, "Shop, Inc", rows[0].Name)
	assert.Equal(t, "pa,ss", rows[0].Password)
}

// The quote character toggles field quoting and has no escape doubling,
// so it can never survive a parse ("a\"b" parses as "ab") and a record
// holding one cannot be rendered back to the table form. Parse strips
// it; restore must refuse rather than emit a line that would reparse
// differently.
func TestQuoteCharacter_ParseStripsRestoreRejects(t *testing.T) {
	rows := ParseTable(`Mail,https://mail.example.com,a@x.com,a"b` + "\n")
	require.Len(t, rows, 1)
	assert.Equal(t, "ab", rows[0].Password)

	record := NewRecord("manual.csv", []Row{
		{Name: "Mail", URL: "https://mail.example.com", Username: "a@x.com", Password: `a"b`},
	})
	_, err := RestoreTable(record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quote character")
}

func TestParseTable_SkipsShortRows(t *testing.T) {
	table := "name,url,username,password\n" +
		"justone\n" +
		"only,two\n" +
		"\n" +
		"https://ok.example,u@x.com,pw\n"

	rows := ParseTable(table)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://ok.example", rows[0].URL)
}

func TestParseTable_NoHeader(t *testing.T) {
	// A file whose first line is data must not lose that line.
	table := "Mail,https://mail.example.com,a@x.com,p1\n"
	rows := ParseTable(table)
	require.Len(t, rows, 1)
	assert.Equal(t, "Mail", rows[0].Name)
}

func TestParseTable_CRLF(t *testing.T) {
	table := "name,url,username,password\r\nMail,https://mail.example.com,a@x.com,p1\r\n"
	rows := ParseTable(table)
	require.Len(t, rows, 1)
	assert.Equal(t, "p1", rows[0].Password)
}

func TestRoundTrip_ParseRestoreParse(t *testing.T) {
	original := []Row{
		{Name: "Mail", URL: "https://mail.example.com", Username: "a@x.com", Password: "p1"},
		{Name: "Shop, Inc", URL: "https://shop.example", Username: "c@x.com", Password: "pa,ss"},
		{Name: "Plain", URL: "https://plain.example", Username: "d@x.com", Password: "with space"},
	}
	record := NewRecord("test.csv", original)
	require.Equal(t, record.Count, len(record.Entries))

	table, err := RestoreTable(record)
	require.NoError(t, err)

	reparsed := ParseTable(table)
	assert.Equal(t, original, reparsed)
}

func TestNewRecord_HashAndEncoding(t *testing.T) {
	record := NewRecord("src.csv", []Row{
		{Name: "Mail", URL: "https://mail.example.com", Username: "a@x.com", Password: "hunter2"},
	})

	entry := record.Entries[0]
	assert.Equal(t, crypto.TruncatedHash("hunter2"), entry.SecretHash)
	assert.Len(t, entry.SecretHash, 12)

	secret, err := crypto.DecodeSecret(entry.SecretEncoded)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(secret))
	assert.NoError(t, record.Validate())
}

func TestRecord_ValidateCountMismatch(t *testing.T) {
	record := NewRecord("src.csv", []Row{{Name: "A", URL: "https://a.example", Username: "u", Password: "p"}})
	record.Count = 5
	assert.Error(t, record.Validate())
}
