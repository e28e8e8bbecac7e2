package mongo_go_driver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/event"

	"github.com/kleimkuhler/tracing/trace/tracer"
)

type spanKey struct {
	ConnectionID string
	RequestID    int64
}

type monitor struct {
	tracer tracer.Tracer
	spans  map[spanKey]tracer.Span
	sync.Mutex
}

// NewMonitor returns a command monitor that opens a span per mongo
// command. Started and Succeeded/Failed fire on different goroutines, so
// spans are started without entering the active stack and finished
// through the pending-span map.
func NewMonitor(tr tracer.Tracer) *event.CommandMonitor {
	if tr == nil {
		panic("tracer is nil")
	}
	m := &monitor{
		tracer: tr,
		spans:  make(map[spanKey]tracer.Span),
	}
	return &event.CommandMonitor{
		Started:   m.Started,
		Succeeded: m.Succeeded,
		Failed:    m.Failed,
	}
}

func (m *monitor) Started(ctx context.Context, evt *event.CommandStartedEvent) {
	if evt == nil {
		return
	}
	peerService := fmt.Sprintf("mongodb:%s/%s", getAddr(evt), evt.DatabaseName)
	span, _ := m.tracer.StartSpanFromContext(ctx, "mongodb.command", tracer.WithoutEnter())
	span.SetField(tracer.PeerType, tracer.Mongodb)
	span.SetField(tracer.PeerService, peerService)
	span.SetField(tracer.DbStatement, toJSONString(evt.Command))
	span.SetField("mongodb.database", evt.DatabaseName)

	collection := tryGetCollection(evt)
	if collection != "" {
		span.SetField("mongodb.collection", collection)
	}

	key := spanKey{
		ConnectionID: evt.ConnectionID,
		RequestID:    evt.RequestID,
	}
	m.Mutex.Lock()
	m.spans[key] = span
	m.Mutex.Unlock()
}

func (m *monitor) Succeeded(ctx context.Context, evt *event.CommandSucceededEvent) {
	if evt == nil {
		return
	}
	span, ok := m.getSpan(&evt.CommandFinishedEvent)
	if !ok {
		return
	}
	span.Finish()
}

func (m *monitor) Failed(ctx context.Context, evt *event.CommandFailedEvent) {
	if evt == nil {
		return
	}
	span, ok := m.getSpan(&evt.CommandFinishedEvent)
	if !ok {
		return
	}
	span.SetField(tracer.ErrorKey, evt.Failure)
	span.Finish()
}

func getAddr(evt *event.CommandStartedEvent) string {
	addr := evt.ConnectionID
	if idx := strings.IndexByte(addr, '['); idx >= 0 {
		addr = addr[:idx]
	}
	port := "27017"
	if idx := strings.IndexByte(addr, ':'); idx >= 0 {
		port = addr[idx+1:]
		addr = addr[:idx]
	}
	return addr + ":" + port
}

func tryGetCollection(evt *event.CommandStartedEvent) string {
	kv, err := evt.Command.IndexErr(0)
	if err != nil {
		return ""
	}
	if k := kv.Key(); k == evt.CommandName {
		if v := kv.Value(); v.Type == bsontype.String {
			return v.String()
		}
	}
	return ""
}

func toJSONString(command bson.Raw) string {
	b, _ := bson.MarshalExtJSON(command, false, false)
	return string(b)
}

func (m *monitor) getSpan(evt *event.CommandFinishedEvent) (tracer.Span, bool) {
	key := spanKey{
		ConnectionID: evt.ConnectionID,
		RequestID:    evt.RequestID,
	}
	m.Mutex.Lock()
	defer m.Mutex.Unlock()
	span, ok := m.spans[key]
	if ok {
		delete(m.spans, key)
	}
	return span, ok
}
