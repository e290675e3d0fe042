package returns

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVエクスポートの文字コード。旧来の倉庫システム取込用に Shift_JIS も選べる。
const (
	EncodingUTF8 = "utf8" // UTF-8 (BOM付き、Excel対応)
	EncodingSJIS = "sjis"
)

func charsetFor(enc string) string {
	if enc == EncodingSJIS {
		return "Shift_JIS"
	}
	return "UTF-8"
}

var csvHeader = []string{
	"return_ulid", "order_number", "customer_name", "status", "disposition",
	"reason", "refund_amount", "item_count", "processed_by", "created_at",
}

// ExportCSV は検索条件に合う返品一覧をCSVにして返す（ページングなし・全件）
func (s *Service) ExportCSV(ctx context.Context, f Filter, enc string) ([]byte, error) {
	if enc != EncodingUTF8 && enc != EncodingSJIS {
		return nil, ErrInvalid("encoding must be utf8 or sjis")
	}
	if f.Status != nil && !validStatus(*f.Status) {
		return nil, ErrInvalid("unknown status: " + *f.Status)
	}

	var buf bytes.Buffer
	tw := encodeWriter(&buf, enc)
	w := csv.NewWriter(tw)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	// 1ページ上限を超える件数でも全件出すまでページを進める
	for offset := 0; ; offset += MaxPageLimit {
		rows, _, err := s.store.List(ctx, f, Page{Limit: MaxPageLimit, Offset: offset, Order: "desc"})
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}
		for i := range rows {
			r := &rows[i]
			processedBy := ""
			if r.ProcessedBy.Valid {
				processedBy = r.ProcessedBy.String
			}
			rec := []string{
				r.ReturnULID,
				r.OrderNumber,
				r.CustomerName,
				r.Status,
				r.Disposition,
				r.Reason,
				strconv.FormatFloat(r.RefundAmount, 'f', 2, 64),
				fmt.Sprintf("%d", len(r.Items)),
				processedBy,
				r.CreatedAt.Format(time.RFC3339),
			}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
		if len(rows) < MaxPageLimit {
			break
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	// transform.Writer は内部バッファを持つため Close で吐き切る
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWriter(buf *bytes.Buffer, enc string) *transform.Writer {
	if enc == EncodingSJIS {
		return transform.NewWriter(buf, japanese.ShiftJIS.NewEncoder())
	}
	// ExcelがUTF-8と認識できるようBOMを付ける
	return transform.NewWriter(buf, unicode.UTF8BOM.NewEncoder())
}
