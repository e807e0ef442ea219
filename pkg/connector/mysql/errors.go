package mysql

import (
	"context"
	"database/sql/driver"
	"net"

	"github.com/go-sql-driver/mysql"

	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// MySQL server error numbers the connector interprets
const (
	errNoSuchGrant          = 1141 // ER_NONEXISTING_GRANT
	errCannotUser           = 1396 // ER_CANNOT_USER
	errAccessDenied         = 1045 // ER_ACCESS_DENIED_ERROR
	errDBAccessDenied       = 1044 // ER_DBACCESS_DENIED_ERROR
	errSpecificAccessDenied = 1227 // ER_SPECIFIC_ACCESS_DENIED_ERROR
	errWrongStringLength    = 1470 // ER_WRONG_STRING_LENGTH
	errPasswordPolicy       = 1819 // ER_NOT_VALID_PASSWORD
)

func serverErrorNumber(err error) (uint16, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number, true
	}
	return 0, false
}

// mapError converts a driver error from operation op on account name into
// a typed error
func mapError(err error, op, name string) error {
	if err == nil {
		return nil
	}

	if n, ok := serverErrorNumber(err); ok {
		var e *errors.Error
		switch n {
		case errCannotUser:
			if op == core.OpCreate {
				e = errors.Wrap(err, errors.ErrorTypeAlreadyExists, "user "+name+" already exists")
			} else {
				e = errors.Wrap(err, errors.ErrorTypeUnknownUid, "user "+name+" does not exist")
			}
		case errAccessDenied, errDBAccessDenied, errSpecificAccessDenied:
			e = errors.Wrap(err, errors.ErrorTypePermission, op+" denied")
		case errWrongStringLength, errPasswordPolicy:
			e = errors.Wrap(err, errors.ErrorTypeInvalidAttribute, op+" rejected by server")
		default:
			e = errors.Wrap(err, errors.ErrorTypeQuery, op+" failed")
		}
		if name != "" {
			e = e.WithDetail("user", name)
		}
		return e.WithDetail("mysql_error", n)
	}

	return mapConnectError(err)
}

// mapConnectError classifies errors raised before the server answered
func mapConnectError(err error) error {
	if n, ok := serverErrorNumber(err); ok {
		if n == errAccessDenied {
			return errors.Wrap(err, errors.ErrorTypeAuthentication, "MySQL rejected the connector credentials")
		}
		return errors.Wrap(err, errors.ErrorTypeQuery, "MySQL request failed")
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, errors.ErrorTypeTimeout, "MySQL request timed out")
	case errors.As(err, &netErr) && netErr.Timeout():
		return errors.Wrap(err, errors.ErrorTypeTimeout, "MySQL request timed out")
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, mysql.ErrInvalidConn), errors.As(err, &netErr):
		return errors.Wrap(err, errors.ErrorTypeConnection, "MySQL connection failed")
	}
	return errors.Wrap(err, errors.ErrorTypeQuery, "MySQL request failed")
}
