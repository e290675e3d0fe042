package returns

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"ATLAS-backend/internal/orders"
)

func exportService(t *testing.T) *Service {
	t.Helper()
	catalog := orders.NewMemStore()
	catalog.SeedDemo(testNow)
	svc := NewService(NewMemStore(), catalog, nil, nil)
	svc.clock = fixedClock{t: testNow}
	svc.id = &seqIDGen{}

	if _, err := svc.Create(context.Background(), laptopRequest(), ""); err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestExportCSV_UTF8HasBOM(t *testing.T) {
	svc := exportService(t)

	data, err := svc.ExportCSV(context.Background(), Filter{}, EncodingUTF8)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("expected UTF-8 BOM prefix")
	}

	rd := csv.NewReader(bytes.NewReader(data[3:]))
	rows, err := rd.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	if rows[0][0] != "return_ulid" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "ORD-2024-001" || rows[1][3] != StatusPending {
		t.Errorf("unexpected row: %v", rows[1])
	}
	if rows[1][6] != "1200.00" {
		t.Errorf("expected refund 1200.00, got %s", rows[1][6])
	}
}

func TestExportCSV_ShiftJIS(t *testing.T) {
	svc := exportService(t)

	data, err := svc.ExportCSV(context.Background(), Filter{}, EncodingSJIS)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("sjis output must not carry a UTF-8 BOM")
	}

	// Shift_JIS から戻して日本語の顧客名が読めること
	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(decoded), "田中 太郎") {
		t.Error("expected customer name to survive the sjis round trip")
	}
}

func TestExportCSV_InvalidInputs(t *testing.T) {
	svc := exportService(t)
	ctx := context.Background()

	if _, err := svc.ExportCSV(ctx, Filter{}, "latin1"); err == nil {
		t.Error("expected error for unknown encoding")
	}
	bad := "in_limbo"
	if _, err := svc.ExportCSV(ctx, Filter{Status: &bad}, EncodingUTF8); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestExportCSV_CoversAllRowsBeyondPageLimit(t *testing.T) {
	catalog := orders.NewMemStore()
	catalog.SeedDemo(testNow)
	svc := NewService(NewMemStore(), catalog, nil, nil)
	svc.clock = fixedClock{t: testNow}
	svc.id = &seqIDGen{}
	ctx := context.Background()

	// 1ページ上限を1件超える数を投入する
	total := MaxPageLimit + 1
	for i := 0; i < total; i++ {
		if _, err := svc.Create(ctx, laptopRequest(), ""); err != nil {
			t.Fatal(err)
		}
	}

	data, err := svc.ExportCSV(ctx, Filter{}, EncodingUTF8)
	if err != nil {
		t.Fatal(err)
	}
	rd := csv.NewReader(bytes.NewReader(data[3:]))
	rows, err := rd.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if got := len(rows) - 1; got != total {
		t.Fatalf("expected %d exported rows, got %d", total, got)
	}

	// 全行ユニークであること（ページ跨ぎの重複なし）
	seen := make(map[string]bool, total)
	for _, row := range rows[1:] {
		if seen[row[0]] {
			t.Fatalf("duplicate row across pages: %s", row[0])
		}
		seen[row[0]] = true
	}
}

func TestExportCSV_StatusFilter(t *testing.T) {
	svc := exportService(t)
	ctx := context.Background()

	st := StatusCompleted
	data, err := svc.ExportCSV(ctx, Filter{Status: &st}, EncodingUTF8)
	if err != nil {
		t.Fatal(err)
	}
	rd := csv.NewReader(bytes.NewReader(data[3:]))
	rows, err := rd.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// completed は0件なのでヘッダのみ
	if len(rows) != 1 {
		t.Errorf("expected header only, got %d rows", len(rows))
	}
}
