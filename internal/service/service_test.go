package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"folio/internal/ledger"
	"folio/internal/service"
	"folio/internal/testsupport"
)

func startServer(t *testing.T, opts ...testsupport.ConfigOption) (*service.Server, string) {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	testsupport.WriteOAILedger(t, filepath.Join(cfg.Paths.LedgerDir, "oai-list.tsv"))

	srv, err := service.NewServer(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, srv.Addr()
}

func newClient(t *testing.T, addr string) *service.Client {
	t.Helper()
	return service.NewClient("oai-list", addr, testsupport.NewConfig(t), nil)
}

func TestNextLeasesRecord(t *testing.T) {
	_, addr := startServer(t)
	client := newClient(t, addr)

	record, err := client.Next(context.Background(), "ocr_skip", "ocr_busy")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !strings.HasSuffix(record.Identifier, "8853011") {
		t.Fatalf("leased %s, want first ocr_skip record", record.Identifier)
	}

	info, err := ledger.DecodeInfo(record.Info)
	if err != nil {
		t.Fatalf("decode lease info: %v", err)
	}
	if info["client"] == nil || info["client"] == "" {
		t.Fatalf("no client stamped into info: %v", info)
	}
	if token, _ := info["lease"].(string); token == "" {
		t.Fatalf("no lease token stamped into info: %v", info)
	}
}

func TestNextLeaseIsExclusive(t *testing.T) {
	_, addr := startServer(t)
	client := newClient(t, addr)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		record, err := client.Next(context.Background(), "ocr_skip", "ocr_busy")
		if err != nil {
			t.Fatalf("Next #%d: %v", i+1, err)
		}
		if seen[record.Identifier] {
			t.Fatalf("record %s leased twice", record.Identifier)
		}
		seen[record.Identifier] = true
	}

	// all three ocr_skip records are leased now
	_, err := client.Next(context.Background(), "ocr_skip", "ocr_busy")
	if !errors.Is(err, service.ErrRecordsExhausted) {
		t.Fatalf("fourth lease = %v, want ErrRecordsExhausted", err)
	}
}

func TestNextExhaustedMessage(t *testing.T) {
	_, addr := startServer(t)
	client := newClient(t, addr)

	_, err := client.Next(context.Background(), "no_such_state", "busy")
	if !errors.Is(err, service.ErrRecordsExhausted) {
		t.Fatalf("err = %v, want ErrRecordsExhausted", err)
	}
	if !strings.Contains(err.Error(), "no records no_such_state in ") {
		t.Fatalf("exhausted message = %q", err.Error())
	}
}

func TestNextUnknownLedgerIsNotExhausted(t *testing.T) {
	_, addr := startServer(t)
	client := service.NewClient("no-such-list", addr, nil, nil)

	_, err := client.Next(context.Background(), "", "")
	if err == nil {
		t.Fatal("Next on unknown ledger succeeded")
	}
	if errors.Is(err, service.ErrRecordsExhausted) {
		t.Fatalf("unknown ledger reported as exhausted: %v", err)
	}
}

func TestNextDefaultsToConfiguredStates(t *testing.T) {
	_, addr := startServer(t)
	client := newClient(t, addr)

	// no explicit states: get the open record, flip it to the lock state
	record, err := client.Next(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !strings.HasSuffix(record.Identifier, "9510508") {
		t.Fatalf("leased %s, want the open record", record.Identifier)
	}

	_, err = client.Next(context.Background(), "", "")
	if !errors.Is(err, service.ErrRecordsExhausted) {
		t.Fatalf("second open lease = %v, want ErrRecordsExhausted", err)
	}
}

func TestUpdateRewritesRecord(t *testing.T) {
	_, addr := startServer(t)
	client := newClient(t, addr)

	record, err := client.Next(context.Background(), "ocr_skip", "ocr_busy")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}

	msg, err := client.Update(context.Background(), record.Identifier, "ocr_done",
		ledger.Info{"pages": 9})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !strings.HasPrefix(msg, "set "+record.Identifier+" to ocr_done in ") {
		t.Fatalf("confirmation = %q", msg)
	}

	// the next lease must not hand the finished record out again
	again, err := client.Next(context.Background(), "ocr_done", "ocr_busy")
	if err != nil {
		t.Fatalf("Next ocr_done: %v", err)
	}
	if again.Identifier != record.Identifier {
		t.Fatalf("updated record not found in ocr_done: got %s", again.Identifier)
	}
	info, err := ledger.DecodeInfo(again.Info)
	if err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info["pages"] != float64(9) {
		t.Fatalf("update info lost: %v", info)
	}
	// the lease stamp from the first delivery survives the merge
	if token, _ := info["lease"].(string); token == "" {
		t.Fatalf("lease stamp lost on update: %v", info)
	}
}

func TestUpdateUnknownRecord(t *testing.T) {
	_, addr := startServer(t)
	client := newClient(t, addr)

	_, err := client.Update(context.Background(), "oai:nowhere:1", "ocr_done", nil)
	if err == nil {
		t.Fatal("Update on unknown record succeeded")
	}
	if !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("err = %v, want a 404", err)
	}
}

func TestAllowListRejectsForeignClients(t *testing.T) {
	_, addr := startServer(t, testsupport.WithAllowedClients("203.0.113.7"))
	client := newClient(t, addr)

	_, err := client.Next(context.Background(), "ocr_skip", "ocr_busy")
	if err == nil {
		t.Fatal("rejected client got a record")
	}
	if errors.Is(err, service.ErrRecordsExhausted) {
		t.Fatalf("rejection reported as exhaustion: %v", err)
	}
}

func TestClientUnreachableService(t *testing.T) {
	client := service.NewClient("oai-list", "127.0.0.1:1", nil, nil)

	_, err := client.Next(context.Background(), "", "")
	if !errors.Is(err, service.ErrServiceUnreachable) {
		t.Fatalf("err = %v, want ErrServiceUnreachable", err)
	}
	if _, err := client.Update(context.Background(), "oai:x:1", "done", nil); !errors.Is(err, service.ErrServiceUnreachable) {
		t.Fatalf("update err = %v, want ErrServiceUnreachable", err)
	}
}
