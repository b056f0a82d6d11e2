package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the loggable breakdown of an error chain, including driver
// detail when a Postgres error is buried in the chain.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

// Dump flattens err into an ErrorDump for structured logging. The first
// Postgres error found while unwrapping wins.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	dump := ErrorDump{TopMessage: err.Error()}
	if coded := As(err); coded != nil {
		dump.Code = coded.Code()
	}

	for link := err; link != nil; link = errors.Unwrap(link) {
		dump.Chain = append(dump.Chain, fmt.Sprintf("%T: %v", link, link))
		if dump.PGCode != "" {
			continue
		}
		switch pg := link.(type) {
		case *pgconn.PgError:
			dump.PGCode = pg.Code
			dump.PGConstraint = pg.ConstraintName
			dump.PGTable = pg.TableName
			dump.PGColumn = pg.ColumnName
			dump.PGDetail = pg.Detail
			dump.PGMessage = pg.Message
		case *pq.Error:
			dump.PGCode = string(pg.Code)
			dump.PGConstraint = pg.Constraint
			dump.PGTable = pg.Table
			dump.PGColumn = pg.Column
			dump.PGDetail = pg.Detail
			dump.PGMessage = pg.Message
		}
	}
	return dump
}
