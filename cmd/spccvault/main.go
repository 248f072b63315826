package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"spccvault/internal"
	"spccvault/internal/config"
	"spccvault/internal/facility"
	"spccvault/internal/objectstore"
	"spccvault/internal/pipeline"
	"spccvault/internal/storage"
)

func main() {
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
	case "facilities:sync":
		must(cfg.Require("FACILITY_API_TOKEN", cfg.DirectoryAPIToken))
		svc := facility.NewSyncService(db, cfg)
		count, err := svc.Sync(context.Background())
		must(err)
		fmt.Printf("facility sync complete facilities=%d\n", count)
	case "profile:set":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		tenant := fs.String("tenant", "", "tenant identifier")
		pageStart := fs.Int("pageStart", 0, "first page of the hint window (1-based)")
		pageEnd := fs.Int("pageEnd", 0, "last page of the hint window (0 = open-ended)")
		anchors := fs.String("anchors", "", "comma-separated anchor phrases")
		dateAnchors := fs.String("dateAnchors", "", "comma-separated date anchor phrases")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*tenant) == "" {
			must(fmt.Errorf("--tenant is required"))
		}
		profile := internal.ExtractionProfile{
			Tenant:      *tenant,
			PageStart:   *pageStart,
			PageEnd:     *pageEnd,
			Anchors:     splitCSV(*anchors),
			DateAnchors: splitCSV(*dateAnchors),
		}
		must(db.SetExtractionProfile(profile))
		fmt.Printf("profile saved tenant=%s\n", *tenant)
	case "profile:show":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		tenant := fs.String("tenant", "", "tenant identifier")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*tenant) == "" {
			must(fmt.Errorf("--tenant is required"))
		}
		profile, err := db.GetExtractionProfile(*tenant)
		must(err)
		if profile == nil {
			fmt.Printf("no profile tenant=%s (extraction uses whole-document text)\n", *tenant)
			return
		}
		blob, _ := json.MarshalIndent(profile, "", "  ")
		fmt.Println(string(blob))
	case "import:run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dir := fs.String("dir", "", "directory of PDF documents to import")
		tenant := fs.String("tenant", "default", "tenant identifier")
		date := fs.String("date", "", "plan date MM/DD/YY applied to rows without one")
		apply := fs.Bool("apply", false, "apply ready rows (storage write + facility update)")
		out := fs.String("out", "", "review sheet output path (xlsx)")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*dir) == "" {
			must(fmt.Errorf("--dir is required"))
		}
		if *date != "" && pipeline.ParseDate(*date) == nil {
			must(fmt.Errorf("--date %q is not a valid MM/DD/YY date", *date))
		}
		must(runImport(db, cfg, *dir, *tenant, *date, *apply, *out))
	default:
		usage()
		os.Exit(1)
	}
}

func runImport(db *storage.DB, cfg config.Config, dir, tenant, date string, apply bool, out string) error {
	paths, err := listPDFs(dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no PDF files in %s", dir)
	}

	profile, err := db.GetExtractionProfile(tenant)
	if err != nil {
		return err
	}

	facilities, err := db.ListFacilities()
	if err != nil {
		return err
	}
	if len(facilities) == 0 {
		return fmt.Errorf("facility cache is empty; run facilities:sync first")
	}

	w := pipeline.NewWorkflow()
	sel, err := w.AddFiles(paths, cfg.MaxBatchFiles, cfg.MaxFileSizeMB)
	if err != nil {
		return err
	}
	for _, rej := range sel.Rejected {
		fmt.Printf("rejected file=%s reason=%q\n", rej.Name, rej.Reason)
	}
	if len(sel.Accepted) == 0 {
		return fmt.Errorf("no files passed validation")
	}
	fmt.Printf("selection accepted=%d rejected=%d\n", len(sel.Accepted), len(sel.Rejected))

	started := time.Now()
	matcher := pipeline.NewMatcher(facilities, cfg.MatchPartialThreshold)
	session, err := w.StartProcessing(matcher, profile, cfg.ExtractConcurrency, func(stage pipeline.Stage, completed, total int) {
		fmt.Printf("progress stage=%s done=%d total=%d\n", stage, completed, total)
	})
	if err != nil {
		return err
	}
	extractMs := time.Since(started).Seconds() * 1000

	if date != "" {
		for _, row := range session.Rows() {
			if row.Status == internal.MatchError || row.PlanDateRaw != "" {
				continue
			}
			d := date
			if err := session.Update(row.RowID, pipeline.RowEdit{PlanDateRaw: &d}); err != nil {
				return err
			}
		}
	}

	sum := session.Summary()
	fmt.Printf("review total=%d matched=%d unmatched=%d errors=%d ready=%d\n",
		sum.Total, sum.Matched, sum.Unmatched, sum.Errors, sum.Ready)

	names := make(map[int]string, len(facilities))
	for _, f := range facilities {
		names[f.ID] = f.Name
	}
	if out != "" {
		rows := pipeline.BuildReviewRows(session, names)
		if err := pipeline.ExportReviewRows(rows, out); err != nil {
			return err
		}
		fmt.Printf("review sheet written path=%s rows=%d\n", out, len(rows))
	}

	if !apply {
		return w.Cancel()
	}

	if err := cfg.Require("FACILITY_API_TOKEN", cfg.DirectoryAPIToken); err != nil {
		return err
	}
	store, err := objectstore.NewS3Store(cfg)
	if err != nil {
		return err
	}
	engine := pipeline.NewApplyEngine(store, facility.NewClient(cfg))

	applyStarted := time.Now()
	outcomes, err := w.StartApply(context.Background(), engine, func(stage pipeline.Stage, completed, total int) {
		fmt.Printf("progress stage=%s done=%d total=%d\n", stage, completed, total)
	})
	if err != nil {
		return err
	}

	counts := map[string]int{"total": sum.Total, "ready": sum.Ready}
	for _, o := range outcomes {
		counts[strings.ToLower(string(o.Status))]++
		if o.Status == internal.ApplyOK {
			fmt.Printf("applied doc=%s facility=%d planRef=%s\n", o.DocName, o.FacilityID, o.PlanRef)
		} else {
			fmt.Printf("apply failed doc=%s facility=%d status=%s detail=%q\n", o.DocName, o.FacilityID, o.Status, o.ErrDetail)
		}
	}

	timings := map[string]float64{
		"extractMs": extractMs,
		"applyMs":   time.Since(applyStarted).Seconds() * 1000,
	}
	runID, err := db.InsertRun(uuid.NewString(), tenant, timings, counts)
	if err != nil {
		return err
	}
	if err := db.InsertApplyOutcomes(runID, outcomes); err != nil {
		return err
	}

	if out != "" {
		outcomesPath := strings.TrimSuffix(out, filepath.Ext(out)) + "-outcomes.xlsx"
		if err := pipeline.ExportOutcomes(outcomes, outcomesPath); err != nil {
			return err
		}
		fmt.Printf("outcome sheet written path=%s\n", outcomesPath)
	}

	fmt.Printf("import done run=%d applied=%d storage_failed=%d update_failed=%d\n",
		runID, counts["applied"], counts["storage_failed"], counts["update_failed"])
	return nil
}

func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func usage() {
	fmt.Println("usage: spccvault <command>")
	fmt.Println("commands:")
	fmt.Println("  facilities:sync")
	fmt.Println("  profile:set --tenant=acme [--pageStart=1] [--pageEnd=2] [--anchors=\"Facility Name\"] [--dateAnchors=\"Plan Date\"]")
	fmt.Println("  profile:show --tenant=acme")
	fmt.Println("  import:run --dir=./plans --tenant=acme [--date=MM/DD/YY] [--apply] [--out=./out/review.xlsx]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
