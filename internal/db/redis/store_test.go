package redis

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/docsearch/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c, true)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c, true)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty addrs")
	}
}

func TestIsRedisErr(t *testing.T) {
	err := mock.Result(mock.RedisError("Unknown Index name")).Error()
	if !isRedisErr(err, "unknown index name") {
		t.Error("expected case-insensitive match")
	}
	if isRedisErr(context.Canceled, "canceled") {
		t.Error("non-server error must not match")
	}
}

// --- hash.go tests ---

func TestHSetMulti_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(2)),
			mock.Result(mock.RedisInt64(2)),
		})

	s := NewStoreForTest(c, true)
	itemErrs, err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f1": "v1"}},
		{Key: "k2", Fields: map[string]string{"f2": "v2"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, e := range itemErrs {
		if e != nil {
			t.Errorf("item %d: unexpected error %v", i, e)
		}
	}
}

func TestHSetMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil, true)
	itemErrs, err := s.HSetMulti(context.Background(), nil)
	if err != nil || itemErrs != nil {
		t.Fatalf("expected no-op, got %v %v", itemErrs, err)
	}
}

func TestHSetMulti_PerItemRejection(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(3)),
			mock.Result(mock.RedisError("WRONGTYPE Operation against a key holding the wrong kind of value")),
		})

	s := NewStoreForTest(c, true)
	itemErrs, err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f": "v"}},
		{Key: "k2", Fields: map[string]string{"f": "v"}},
	})
	if err != nil {
		t.Fatalf("unexpected request error: %v", err)
	}
	if itemErrs[0] != nil {
		t.Errorf("item 0: unexpected error %v", itemErrs[0])
	}
	if !errors.Is(itemErrs[1], db.ErrRejected) {
		t.Errorf("item 1: expected ErrRejected, got %v", itemErrs[1])
	}
}

func TestHSetMulti_RequestLevelRejection(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisError("NOAUTH Authentication required.")),
		})

	s := NewStoreForTest(c, true)
	_, err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f": "v"}},
	})
	if !errors.Is(err, db.ErrRejected) {
		t.Fatalf("expected request-level ErrRejected, got %v", err)
	}
}

func TestHSetMulti_NetworkFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{mock.ErrorResult(context.DeadlineExceeded)})

	s := NewStoreForTest(c, true)
	_, err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f": "v"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if db.IsRejected(err) {
		t.Error("network failure must not be classified as rejected")
	}
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestHGetAll_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "mykey")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisString("title"), mock.RedisString("Go"),
			mock.RedisString("url"), mock.RedisString("https://go.dev"),
		)))

	s := NewStoreForTest(c, true)
	m, err := s.HGetAll(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["title"] != "Go" || m["url"] != "https://go.dev" {
		t.Errorf("unexpected fields: %v", m)
	}
}

// --- kv.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisString("value")))

	s := NewStoreForTest(c, true)
	got, err := s.Get(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("expected value, got %q", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c, true)
	_, err := s.Get(context.Background(), "mykey")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "mykey", "value")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c, true)
	if err := s.Set(context.Background(), "mykey", []byte("value")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetWithTTL_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "mykey", "value", "EX", "60")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c, true)
	if err := s.SetWithTTL(context.Background(), "mykey", []byte("value"), 60*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- index.go tests ---

func testIndexDef() *db.IndexDefinition {
	def, err := db.NewIndex("docs:idx").
		Prefix("docs:").
		Tag("url").
		Text("title").
		VectorHNSW("embedding", 4, db.DistanceCosine, 16, 200).
		Build()
	if err != nil {
		panic(err)
	}
	return def
}

func TestCreateIndex_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var captured []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			captured = cmd
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c, true)
	if err := s.CreateIndex(context.Background(), testIndexDef()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"docs:idx", "HASH", "PREFIX", "docs:", "TAG", "TEXT", "HNSW", "COSINE", "EF_CONSTRUCTION", "200"} {
		assertContains(t, captured, want)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c, true)
	err := s.CreateIndex(context.Background(), testIndexDef())
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndex_InvalidDefinition(t *testing.T) {
	s := NewStoreForTest(nil, true)
	err := s.CreateIndex(context.Background(), &db.IndexDefinition{Name: "bad name"})
	if !errors.Is(err, db.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestDropIndex_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.DROPINDEX", "docs:idx")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c, true)
	err := s.DropIndex(context.Background(), "docs:idx")
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestIndexExists(t *testing.T) {
	tests := []struct {
		name  string
		reply rueidis.RedisResult
		want  bool
	}{
		{"present", mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("docs:idx"))), true},
		{"redis unknown", mock.Result(mock.RedisError("Unknown index name")), false},
		{"valkey not found", mock.Result(mock.RedisError("Index with name 'docs:idx' not found")), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)
			c.EXPECT().
				Do(gomock.Any(), mock.Match("FT.INFO", "docs:idx")).
				Return(tc.reply)

			s := NewStoreForTest(c, true)
			got, err := s.IndexExists(context.Background(), "docs:idx")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIndexDocCount(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "docs:idx")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisString("index_name"), mock.RedisString("docs:idx"),
			mock.RedisString("num_docs"), mock.RedisString("42"),
		)))

	s := NewStoreForTest(c, true)
	n, err := s.IndexDocCount(context.Background(), "docs:idx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 42 {
		t.Errorf("expected 42, got %d", n)
	}
}

func TestIndexDocCount_UnknownIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "docs:idx")).
		Return(mock.Result(mock.RedisError("Unknown index name")))

	s := NewStoreForTest(c, true)
	_, err := s.IndexDocCount(context.Background(), "docs:idx")
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestSupportsTextSearch(t *testing.T) {
	if !NewStoreForTest(nil, true).SupportsTextSearch(context.Background()) {
		t.Error("expected text search on redis")
	}
	if NewStoreForTest(nil, false).SupportsTextSearch(context.Background()) {
		t.Error("expected no text search on valkey")
	}
}

func TestBuildFieldArgs_UnknownType(t *testing.T) {
	if _, err := buildFieldArgs(&db.IndexField{Name: "x", Type: db.IndexFieldType(99)}); err == nil {
		t.Fatal("expected error for unknown field type")
	}
}

func assertContains(t *testing.T, args []string, want string) {
	t.Helper()
	if !slices.Contains(args, want) {
		t.Errorf("expected %q in args %v", want, args)
	}
}

// --- search.go tests ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var captured []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			captured = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2), // total
			mock.RedisString("docs:b"),
			mock.RedisArray(
				mock.RedisString("__embedding_score"),
				mock.RedisString("0.1"), // distance 0.1 → similarity 0.9
				mock.RedisString("title"),
				mock.RedisString("B"),
			),
			mock.RedisString("docs:a"),
			mock.RedisArray(
				mock.RedisString("__embedding_score"),
				mock.RedisString("0.4"),
				mock.RedisString("title"),
				mock.RedisString("A"),
			),
		)))

	s := NewStoreForTest(c, true)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "docs:idx",
		VectorField:  "embedding",
		Vector:       []float32{0.1, 0.2},
		K:            10,
		EFRuntime:    100,
		ReturnFields: []string{"title"},
		Limit:        5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Entries))
	}
	if result.Entries[0].Key != "docs:b" || result.Entries[1].Key != "docs:a" {
		t.Errorf("engine order not preserved: %v", result.Entries)
	}
	if result.Entries[0].Score < 0.89 || result.Entries[0].Score > 0.91 {
		t.Errorf("expected score ~0.9, got %f", result.Entries[0].Score)
	}
	if _, ok := result.Entries[0].Fields["__embedding_score"]; ok {
		t.Error("score field must be stripped from fields")
	}
	if result.Entries[0].Fields["title"] != "B" {
		t.Errorf("expected title B, got %q", result.Entries[0].Fields["title"])
	}

	assertContains(t, captured, "*=>[KNN 10 @embedding $BLOB EF_RUNTIME 100 AS __embedding_score]")
	assertContains(t, captured, "LIMIT")
	assertContains(t, captured, "5")
	assertContains(t, captured, "DIALECT")
}

func TestSearchKNN_ScoreClamped(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("docs:x"),
			mock.RedisArray(mock.RedisString("__embedding_score"), mock.RedisString("1.7")),
		)))

	s := NewStoreForTest(c, true)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "docs:idx", VectorField: "embedding", Vector: []float32{1}, K: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Entries[0].Score != 0 {
		t.Errorf("expected clamped score 0, got %f", result.Entries[0].Score)
	}
}

func TestSearchKNN_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c, true)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "docs:idx", VectorField: "embedding", Vector: []float32{0.1}, K: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(result.Entries))
	}
}

func TestSearchKNN_ServerRejection(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.Result(mock.RedisError("Syntax error at offset 3")))

	s := NewStoreForTest(c, true)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "docs:idx", VectorField: "embedding", Vector: []float32{0.1}, K: 10,
	})
	if !errors.Is(err, db.ErrRejected) {
		t.Errorf("expected ErrRejected, got %v", err)
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := NewStoreForTest(nil, true)
	base := db.KNNQuery{IndexName: "idx", VectorField: "embedding", Vector: []float32{1}, K: 1}

	tests := []struct {
		name   string
		mutate func(q *db.KNNQuery)
	}{
		{"no index", func(q *db.KNNQuery) { q.IndexName = "" }},
		{"no field", func(q *db.KNNQuery) { q.VectorField = "" }},
		{"no vector", func(q *db.KNNQuery) { q.Vector = nil }},
		{"zero k", func(q *db.KNNQuery) { q.K = 0 }},
		{"negative ef", func(q *db.KNNQuery) { q.EFRuntime = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := base
			tc.mutate(&q)
			_, err := s.SearchKNN(context.Background(), &q)
			if !errors.Is(err, db.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestVectorBlobRoundTrip(t *testing.T) {
	v := []float32{1.0, -2.5, 0.125}
	b := db.VectorToBytes(v)
	if len(b) != 12 {
		t.Fatalf("expected 12 bytes, got %d", len(b))
	}
	got, err := db.BytesToVector(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(got, v) {
		t.Errorf("got %v, want %v", got, v)
	}
	if _, err := db.BytesToVector("abc"); err == nil {
		t.Error("expected error for truncated blob")
	}
}

// --- helpers ---

// isDBError is a test helper for checking wrapped db.Error.
func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
