package gorm_v1

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kleimkuhler/tracing/trace/tracer"
)

type contextKey string

var contextKeySpan = contextKey("tracing_span")

// WrapDB registers before/after callbacks around every gorm operation so
// each statement runs inside its own span. Spans do not enter the active
// stack because gorm may complete a statement on a pooled goroutine.
func WrapDB(dbType, endpoint, dbName string, db *gorm.DB, tr tracer.Tracer) (*gorm.DB, error) {
	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("tracing:before_create", newBefore(dbType, endpoint, dbName, "gorm:create", tr)); err != nil {
		return nil, err
	}
	if err := cb.Create().After("gorm:create").Register("tracing:after_create", newAfterFunc()); err != nil {
		return nil, err
	}
	if err := cb.Update().Before("gorm:update").Register("tracing:before_update", newBefore(dbType, endpoint, dbName, "gorm:update", tr)); err != nil {
		return nil, err
	}
	if err := cb.Update().After("gorm:update").Register("tracing:after_update", newAfterFunc()); err != nil {
		return nil, err
	}
	if err := cb.Delete().Before("gorm:delete").Register("tracing:before_delete", newBefore(dbType, endpoint, dbName, "gorm:delete", tr)); err != nil {
		return nil, err
	}
	if err := cb.Delete().After("gorm:delete").Register("tracing:after_delete", newAfterFunc()); err != nil {
		return nil, err
	}
	if err := cb.Query().Before("gorm:query").Register("tracing:before_query", newBefore(dbType, endpoint, dbName, "gorm:query", tr)); err != nil {
		return nil, err
	}
	if err := cb.Query().After("gorm:query").Register("tracing:after_query", newAfterFunc()); err != nil {
		return nil, err
	}
	if err := cb.Row().Before("gorm:row").Register("tracing:before_row", newBefore(dbType, endpoint, dbName, "gorm:row", tr)); err != nil {
		return nil, err
	}
	if err := cb.Row().After("gorm:row").Register("tracing:after_row", newAfterFunc()); err != nil {
		return nil, err
	}
	if err := cb.Raw().Before("gorm:raw").Register("tracing:before_raw", newBefore(dbType, endpoint, dbName, "gorm:raw", tr)); err != nil {
		return nil, err
	}
	if err := cb.Raw().After("gorm:raw").Register("tracing:after_raw", newAfterFunc()); err != nil {
		return nil, err
	}
	return db, nil
}

func newBefore(dbType, endpoint, dbName string, action string, tr tracer.Tracer) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if db == nil || db.Statement == nil || db.Statement.Context == nil {
			return
		}
		span, ctx := tr.StartSpanFromContext(db.Statement.Context, action, tracer.WithoutEnter())
		span.SetField(tracer.PeerType, dbType)
		span.SetField(tracer.PeerAddress, endpoint)
		span.SetField(tracer.DbInstance, dbName)

		db.Statement.Context = context.WithValue(ctx, contextKeySpan, span)
	}
}

func newAfterFunc() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if db == nil || db.Statement == nil || db.Statement.Context == nil {
			return
		}
		span, _ := db.Statement.Context.Value(contextKeySpan).(tracer.Span)
		if span == nil {
			return
		}
		span.SetField(tracer.DbStatement, db.Statement.SQL.String())
		span.SetField(tracer.DbParameters, formatVars(db.Statement.Vars))
		if db.Error != nil {
			span.SetField(tracer.ErrorKey, db.Error.Error())
		}
		span.Finish()
	}
}

func formatVars(vars []interface{}) string {
	sb := strings.Builder{}
	sb.WriteString("[")
	for i, v := range vars {
		if i > 0 {
			sb.WriteString(",")
		}
		switch vv := v.(type) {
		case string:
			sb.WriteString("'")
			sb.WriteString(vv)
			sb.WriteString("'")
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			sb.WriteString(fmt.Sprintf("%v", vv))
		case time.Time:
			sb.WriteString(strconv.FormatInt(vv.Unix(), 10))
		case gorm.DeletedAt:
			if vv.Valid {
				sb.WriteString(strconv.FormatInt(vv.Time.Unix(), 10))
			} else {
				sb.WriteString("null")
			}
		default:
			sb.WriteString("'?'")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
