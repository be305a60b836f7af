package invalidation_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IBM/sarama"
	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/griddap-subset/internal/axisstore"
	"github.com/mohammed-shakir/griddap-subset/internal/cache/keys"
	"github.com/mohammed-shakir/griddap-subset/internal/cache/redisstore"
	"github.com/mohammed-shakir/griddap-subset/internal/core/executor"
	"github.com/mohammed-shakir/griddap-subset/internal/core/model"
	"github.com/mohammed-shakir/griddap-subset/internal/invalidation"
	"github.com/mohammed-shakir/griddap-subset/internal/invalidation/kafkaconsumer"
)

func writeDepths(t *testing.T, dir string, depths string) {
	t.Helper()
	desc := `{"dimensions":[{"name":"depth","values":` + depths + `}]}`
	if err := os.WriteFile(filepath.Join(dir, "hycom.json"), []byte(desc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestIntegration_ReloadEventPurgesRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rc, err := redisstore.New(t.Context(), mr.Addr())
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })

	dir := t.TempDir()
	writeDepths(t, dir, "[0, 5, 10, 15]")
	exec := executor.New(nil, axisstore.NewCatalog(axisstore.FileProvider{Dir: dir}, nil), nil, rc)

	req := model.ResolveRequest{Dataset: "hycom", Expressions: []string{"temp[(10)]", "salt[(10):(15)]"}}
	resp, err := exec.Resolve(t.Context(), req)
	if err != nil || resp.Query != "temp[2:2],salt[2:3]" {
		t.Fatalf("resolve: %+v %v", resp, err)
	}
	if n := len(mr.Keys()); n != 2 {
		t.Fatalf("redis keys=%d want 2", n)
	}
	_ = mr.Set(keys.DatasetPrefix("other")+"x", "kept")

	writeDepths(t, dir, "[0, 10, 20, 30]")
	c := kafkaconsumer.New(kafkaconsumer.Config{DedupeSize: 8}, exec, kafkaconsumer.Options{})
	b, _ := json.Marshal(invalidation.Event{
		Version: 1, Op: invalidation.OpReload, Dataset: "hycom", TS: time.Now().UTC(), Revision: 1,
	})
	if err := c.ProcessOne(t.Context(), &sarama.ConsumerMessage{Topic: "griddap-axes", Value: b}); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	if ks := mr.Keys(); len(ks) != 1 || ks[0] != keys.DatasetPrefix("other")+"x" {
		t.Fatalf("keys after reload=%v", ks)
	}
	resp, err = exec.Resolve(t.Context(), req)
	if err != nil || resp.Query != "temp[1:1],salt[1:1]" || resp.Cached != 0 {
		t.Fatalf("after reload: %+v %v", resp, err)
	}
}
