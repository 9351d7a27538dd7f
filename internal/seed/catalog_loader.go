package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"possync/m/internal/service"
)

// Catalog columns: name, description, price, stock_quantity, alert_threshold, category.
const catalogColumns = 6

// LoadCatalog imports products from a CSV file through the product service,
// so every imported row is queued for upload like any other write. Products
// whose name already exists are skipped, and unknown categories are created.
func LoadCatalog(ctx context.Context, svc *service.Services, csvPath string, log *zap.Logger) (int, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("open catalog %s: %w", csvPath, err)
	}
	defer file.Close()
	return loadCatalog(ctx, svc, file, log)
}

func loadCatalog(ctx context.Context, svc *service.Services, r io.Reader, log *zap.Logger) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	// Skip header
	if _, err := reader.Read(); err != nil {
		return 0, fmt.Errorf("read catalog header: %w", err)
	}

	existing, err := svc.Products.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[strings.ToLower(p.Name)] = true
	}

	categories, err := svc.Categories.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	categoryIDs := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryIDs[strings.ToLower(c.Name)] = c.ID
	}

	rows := 0
	line := 1
	for {
		record, err := reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn("unable to read catalog row", zap.Int("line", line), zap.Error(err))
			continue
		}
		if len(record) < catalogColumns {
			continue
		}

		name := strings.TrimSpace(record[0])
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}

		in := service.ProductInput{Name: name}
		if desc := strings.TrimSpace(record[1]); desc != "" {
			in.Description = &desc
		}
		if in.Price, err = parseAmount(record[2]); err != nil {
			log.Warn("invalid catalog price", zap.Int("line", line), zap.String("product", name), zap.Error(err))
			continue
		}
		if in.StockQuantity, err = parseAmount(record[3]); err != nil {
			log.Warn("invalid catalog stock", zap.Int("line", line), zap.String("product", name), zap.Error(err))
			continue
		}
		if in.AlertThreshold, err = parseAmount(record[4]); err != nil {
			log.Warn("invalid catalog threshold", zap.Int("line", line), zap.String("product", name), zap.Error(err))
			continue
		}

		if category := strings.TrimSpace(record[5]); category != "" {
			id, ok := categoryIDs[strings.ToLower(category)]
			if !ok {
				created, err := svc.Categories.Create(ctx, category)
				if err != nil {
					return rows, err
				}
				id = created.ID
				categoryIDs[strings.ToLower(category)] = id
			}
			in.CategoryID = &id
		}

		if _, err := svc.Products.Create(ctx, in); err != nil {
			if errors.Is(err, service.ErrValidation) {
				log.Warn("skipping catalog product", zap.Int("line", line), zap.String("product", name), zap.Error(err))
				continue
			}
			return rows, err
		}
		seen[strings.ToLower(name)] = true
		rows++
	}

	log.Info("seeded product catalog", zap.Int("rows", rows))
	return rows, nil
}

func parseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
