package token

type Type string

type Token struct {
	Type    Type
	Literal string
	// Raw preserves the original lexeme when Literal is normalized (e.g., strings).
	Raw  string
	Line int
	Col  int
}

const (
	// Special
	ILLEGAL Type = "ILLEGAL"
	// INCOMPLETE marks input that ended inside a string or block comment.
	INCOMPLETE Type = "INCOMPLETE"
	EOF        Type = "EOF"

	// Atoms
	ATOM    Type = "ATOM" // symbol or number, decided by the parser
	STRING  Type = "STRING"
	CHAR    Type = "CHAR"
	BOOLEAN Type = "BOOLEAN"

	// Delimiters
	LPAREN      Type = "("
	RPAREN      Type = ")"
	DOT         Type = "."
	HASH_LPAREN Type = "#("

	// Abbreviations
	QUOTE            Type = "'"
	QUASIQUOTE       Type = "`"
	UNQUOTE          Type = ","
	UNQUOTE_SPLICING Type = ",@"
	DATUM_COMMENT    Type = "#;"
)

// Abbreviations maps prefix tokens to the symbol they expand to.
var Abbreviations = map[Type]string{
	QUOTE:            "quote",
	QUASIQUOTE:       "quasiquote",
	UNQUOTE:          "unquote",
	UNQUOTE_SPLICING: "unquote-splicing",
}
