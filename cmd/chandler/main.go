package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"chandler/internal/catalog"
	"chandler/internal/config"
	"chandler/internal/logging"
	"chandler/internal/pipeline"
	"chandler/internal/quotation"
	"chandler/internal/replies"
	"chandler/internal/storage"
)

func main() {
	logger, err := logging.Init()
	must(err)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "catalog:sync":
		svc := catalog.NewSyncService(db, cfg)
		count, err := svc.SyncProducts(context.Background())
		must(err)
		fmt.Printf("catalog sync complete: %d products\n", count)
	case "suppliers:sync":
		svc := catalog.NewSyncService(db, cfg)
		count, err := svc.SyncSuppliers(context.Background())
		must(err)
		fmt.Printf("supplier sync complete: %d suppliers\n", count)
	case "match:batch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		uploadID := fs.Int("uploadId", 0, "order upload id")
		asJSON := fs.Bool("json", false, "print results as json")
		_ = fs.Parse(os.Args[2:])
		if *uploadID == 0 {
			must(fmt.Errorf("--uploadId is required"))
		}
		svc := pipeline.NewBatchService(db, cfg)
		summary, err := svc.MatchUpload(context.Background(), *uploadID)
		must(err)
		if *asJSON {
			blob, _ := json.MarshalIndent(summary, "", "  ")
			fmt.Println(string(blob))
			return
		}
		fmt.Printf("match batch done total=%d matched=%d unmatched=%d\n", summary.TotalItems, summary.MatchedItems, summary.UnmatchedItems)
		for _, r := range summary.Results {
			fmt.Printf("  item=%d status=%s score=%.2f reason=%s\n", r.LineItemID, r.Status, r.Score, r.Reason)
		}
	case "quote:export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		uploadID := fs.Int("uploadId", 0, "order upload id")
		supplierID := fs.Int("supplierId", 0, "supplier id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *uploadID == 0 || *supplierID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--uploadId --supplierId --out are required"))
		}

		supplier, err := db.MustSupplier(*supplierID)
		must(err)
		upload, err := db.GetUploadByID(*uploadID)
		must(err)
		if upload == nil {
			must(fmt.Errorf("order upload not found: id=%d", *uploadID))
		}
		items, err := db.ListOrderItemsByUpload(*uploadID)
		must(err)
		if len(items) == 0 {
			must(fmt.Errorf("no line items for uploadId=%d", *uploadID))
		}

		taxRate, err := decimal.NewFromString(cfg.DefaultTaxRate)
		must(err)
		doc := quotation.BuildFromItems(supplier, *upload, items, taxRate, cfg.DefaultCurrency)
		must(quotation.ExportXLSX(doc, *out))
		fmt.Printf("exported quotation for supplier=%d lines=%d to %s\n", *supplierID, len(doc.Lines), *out)
	case "dispatch:status":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		batchID := fs.String("batchId", "", "dispatch batch id")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*batchID) == "" {
			must(fmt.Errorf("--batchId is required"))
		}
		records, err := db.ListDispatches(*batchID)
		must(err)
		if len(records) == 0 {
			fmt.Printf("no dispatch records for batchId=%s\n", *batchID)
			return
		}
		for _, r := range records {
			line := fmt.Sprintf("supplier=%d status=%s", r.SupplierID, r.Status)
			if r.Error != "" {
				line += " error=" + r.Error
			}
			if r.SentAt != "" {
				line += " sentAt=" + r.SentAt
			}
			fmt.Println(line)
		}
	case "replies:poll":
		monitor, err := replies.NewMonitor(db, cfg)
		must(err)
		stored, err := monitor.PollOnce(context.Background())
		must(err)
		fmt.Printf("replies poll done stored=%d\n", stored)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: chandler <command>")
	fmt.Println("commands:")
	fmt.Println("  catalog:sync")
	fmt.Println("  suppliers:sync")
	fmt.Println("  match:batch --uploadId=1 [--json]")
	fmt.Println("  quote:export --uploadId=1 --supplierId=2 --out=./out/quote.xlsx")
	fmt.Println("  dispatch:status --batchId=...")
	fmt.Println("  replies:poll")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
