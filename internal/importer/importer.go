package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads catalog CSV files and inserts/updates products by SKU.
//
// A row with a sku starts a product. Rows that leave sku empty and fill the
// variant.* columns add variants to the product above them.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
}

func NewCSVImporter(r io.Reader, repo ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
	}
}

// Run parses CSV rows and upserts products with their variants.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["sku"]; !ok {
		return 0, errors.New("read headers: missing sku column")
	}

	var (
		current  *domain.Product
		imported int
		line     = 1
	)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}

		if pick(record, index, "sku") != "" {
			if current != nil {
				if err := i.save(ctx, current); err != nil {
					return imported, err
				}
				imported++
			}
			current, err = parseProduct(record, index)
			if err != nil {
				return imported, fmt.Errorf("row %d: %w", line, err)
			}
			continue
		}

		v, ok, err := parseVariant(record, index)
		if err != nil {
			return imported, fmt.Errorf("row %d: %w", line, err)
		}
		if !ok {
			continue
		}
		if current == nil {
			return imported, fmt.Errorf("row %d: variant %s has no product above it", line, v.SKU)
		}
		current.Variants = append(current.Variants, v)
	}

	if current != nil {
		if err := i.save(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, p *domain.Product) error {
	if p.Title == "" || p.Currency == "" || !p.Price.IsPositive() {
		return fmt.Errorf("invalid product row (missing required fields) for sku %q", p.SKU)
	}
	if err := domain.CheckAmount(p.Price, p.Currency); err != nil {
		return fmt.Errorf("price for sku %q: %w", p.SKU, err)
	}
	for _, v := range p.Variants {
		if v.Price == nil {
			continue
		}
		if err := domain.CheckAmount(*v.Price, p.Currency); err != nil {
			return fmt.Errorf("price for variant sku %q: %w", v.SKU, err)
		}
	}
	if _, err := i.productRepo.Upsert(ctx, *p); err != nil {
		return fmt.Errorf("upsert product %q: %w", p.SKU, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func parseProduct(record []string, index map[string]int) (*domain.Product, error) {
	p := &domain.Product{
		SKU:            pick(record, index, "sku"),
		Title:          pick(record, index, "title"),
		Currency:       strings.ToUpper(pick(record, index, "currency")),
		Status:         domain.ProductStatus(pick(record, index, "status")),
		TrackInventory: pickBool(record, index, "track_inventory"),
		AllowBackorder: pickBool(record, index, "allow_backorder"),
	}
	if s := pick(record, index, "price"); s != "" {
		price, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("price %q for sku %s: %w", s, p.SKU, err)
		}
		p.Price = price
	}
	stock, err := pickInt(record, index, "stock")
	if err != nil {
		return nil, fmt.Errorf("stock for sku %s: %w", p.SKU, err)
	}
	p.Stock = stock
	return p, nil
}

func parseVariant(record []string, index map[string]int) (domain.Variant, bool, error) {
	sku := pick(record, index, "variant.sku")
	if sku == "" {
		return domain.Variant{}, false, nil
	}
	v := domain.Variant{
		SKU:    sku,
		Title:  pick(record, index, "variant.title"),
		Status: domain.ProductStatus(pick(record, index, "variant.status")),
	}
	if s := pick(record, index, "variant.price"); s != "" {
		price, err := decimal.NewFromString(s)
		if err != nil {
			return v, false, fmt.Errorf("variant price %q for sku %s: %w", s, sku, err)
		}
		v.Price = &price
	}
	stock, err := pickInt(record, index, "variant.stock")
	if err != nil {
		return v, false, fmt.Errorf("variant stock for sku %s: %w", sku, err)
	}
	v.Stock = stock
	return v, true, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func pickInt(record []string, index map[string]int, key string) (int, error) {
	s := pick(record, index, key)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func pickBool(record []string, index map[string]int, key string) bool {
	b, _ := strconv.ParseBool(pick(record, index, key))
	return b
}
