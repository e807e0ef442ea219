package oracleerp

import (
	"context"
	"database/sql/driver"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/sijms/go-ora/v2/network"

	"github.com/ajitpratap0/idbridge/pkg/connector/core"
	"github.com/ajitpratap0/idbridge/pkg/errors"
)

var oraCodePattern = regexp.MustCompile(`ORA-(\d{5})`)

// Oracle error codes the connector interprets
const (
	oraUniqueConstraint  = 1
	oraUserCancel        = 1013
	oraInvalidLogon      = 1017
	oraNoPrivileges      = 1031
	oraCannotInsertNull  = 1400
	oraInvalidNumber     = 1722
	oraEndOfFile         = 3113
	oraNotConnected      = 3114
	oraApplicationError  = 20001
	oraConnectTimeout    = 12170
	oraUnknownService    = 12514
	oraNoListener        = 12541
	oraDateFormatInvalid = 1861
)

// oracleCode extracts the ORA- number from err, or 0
func oracleCode(err error) int {
	var oe *network.OracleError
	if errors.As(err, &oe) {
		return oe.ErrCode
	}
	if m := oraCodePattern.FindStringSubmatch(err.Error()); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

// mapError converts a driver error from operation op on user into a typed error
func mapError(err error, op, user string) error {
	if err == nil {
		return nil
	}

	code := oracleCode(err)
	if code == 0 {
		return mapConnectError(err)
	}

	msg := strings.ToLower(err.Error())
	var e *errors.Error
	switch {
	case code == oraUniqueConstraint:
		e = errors.Wrap(err, errors.ErrorTypeAlreadyExists, "user "+user+" already exists")
	case code == oraApplicationError && strings.Contains(msg, "already exists"):
		e = errors.Wrap(err, errors.ErrorTypeAlreadyExists, "user "+user+" already exists")
	case code == oraApplicationError && (strings.Contains(msg, "unable to find") || strings.Contains(msg, "does not exist")):
		e = errors.Wrap(err, errors.ErrorTypeUnknownUid, "user "+user+" does not exist")
	case code == oraNoPrivileges:
		e = errors.Wrap(err, errors.ErrorTypePermission, op+" denied")
	case code == oraCannotInsertNull, code == oraInvalidNumber, code == oraDateFormatInvalid:
		e = errors.Wrap(err, errors.ErrorTypeInvalidAttribute, op+" rejected by the ERP")
	case code == oraUserCancel:
		e = errors.Wrap(err, errors.ErrorTypeTimeout, op+" cancelled")
	case code == oraEndOfFile, code == oraNotConnected, code == oraConnectTimeout,
		code == oraUnknownService, code == oraNoListener:
		e = errors.Wrap(err, errors.ErrorTypeConnection, "Oracle connection failed")
	case code == oraApplicationError:
		e = errors.Wrap(err, errors.ErrorTypeInvalidAttribute, op+" rejected by fnd_user_pkg")
	default:
		e = errors.Wrap(err, errors.ErrorTypeQuery, op+" failed")
	}
	if user != "" {
		e = e.WithDetail("user", user)
	}
	return e.WithDetail("ora_code", code)
}

// mapConnectError classifies errors raised while reaching the database
func mapConnectError(err error) error {
	switch code := oracleCode(err); code {
	case 0:
	case oraInvalidLogon:
		return errors.Wrap(err, errors.ErrorTypeAuthentication, "Oracle rejected the connector credentials")
	case oraEndOfFile, oraNotConnected, oraConnectTimeout, oraUnknownService, oraNoListener:
		return errors.Wrap(err, errors.ErrorTypeConnection, "Oracle connection failed").WithDetail("ora_code", code)
	default:
		return mapError(err, core.OpTest, "")
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, errors.ErrorTypeTimeout, "Oracle request timed out")
	case errors.As(err, &netErr) && netErr.Timeout():
		return errors.Wrap(err, errors.ErrorTypeTimeout, "Oracle request timed out")
	case errors.Is(err, driver.ErrBadConn), errors.As(err, &netErr):
		return errors.Wrap(err, errors.ErrorTypeConnection, "Oracle connection failed")
	}
	return errors.Wrap(err, errors.ErrorTypeQuery, "Oracle request failed")
}
