package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fulldump/goconfig"

	"github.com/fulldump/idxdb/configuration"
	"github.com/fulldump/idxdb/database"
	"github.com/fulldump/idxdb/types"
)

func main() {
	c := configuration.Default()
	goconfig.Read(&c)

	if c.Dir == "" {
		fmt.Println("ERROR: -dir is required")
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Println("usage: idxctl -dir <path> <stats|get|add|delete> ...")
		os.Exit(1)
	}

	logger := log.New(os.Stderr, "idxctl: ", log.LstdFlags)
	if c.LogFile != "" {
		logPath := c.LogFile
		if !filepath.IsAbs(logPath) {
			logPath = filepath.Join(c.Dir, logPath)
		}
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Println("ERROR: open log file:", err.Error())
			os.Exit(1)
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	cmd, rest := args[0], args[1:]

	switch cmd {
	case "stats":
		runStats(c)
	case "get":
		runGet(c, rest)
	case "add":
		runAdd(c, logger)
	case "delete":
		runDelete(c, logger, rest)
	default:
		fmt.Println("ERROR: unknown command", cmd)
		os.Exit(1)
	}
}

func runStats(c configuration.Configuration) {
	rdb, err := database.OpenRead(c.Dir)
	if err != nil {
		fmt.Println("ERROR:", err.Error())
		os.Exit(1)
	}
	defer rdb.Close()

	fmt.Println("doccount:", rdb.GetDocCount())
	fmt.Println("avlength:", rdb.GetAvLength())
}

func runGet(c configuration.Configuration, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: idxctl get <docid>")
		os.Exit(1)
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Println("ERROR: invalid docid:", err.Error())
		os.Exit(1)
	}

	rdb, err := database.OpenRead(c.Dir)
	if err != nil {
		fmt.Println("ERROR:", err.Error())
		os.Exit(1)
	}
	defer rdb.Close()

	doc, err := rdb.GetDocument(types.DocID(id))
	if err != nil {
		fmt.Println("ERROR:", err.Error())
		os.Exit(1)
	}

	e := json.NewEncoder(os.Stdout)
	e.SetIndent("", "    ")
	e.Encode(doc)
}

func runAdd(c configuration.Configuration, logger *log.Logger) {
	if c.ReadOnly {
		fmt.Println("ERROR: database opened read-only")
		os.Exit(1)
	}

	var doc types.Document
	if err := json.NewDecoder(os.Stdin).Decode(&doc); err != nil {
		fmt.Println("ERROR: decode document:", err.Error())
		os.Exit(1)
	}

	wdb, err := database.OpenWritable(c.Dir, c.PerformRecovery, c.BlockSize, logger)
	if err != nil {
		fmt.Println("ERROR:", err.Error())
		os.Exit(1)
	}
	defer wdb.Close()

	if err := wdb.BeginSession(5 * time.Second); err != nil {
		fmt.Println("ERROR:", err.Error())
		os.Exit(1)
	}

	id, err := wdb.AddDocument(&doc)
	if err != nil {
		fmt.Println("ERROR:", err.Error())
		os.Exit(1)
	}

	if err := wdb.EndSession(); err != nil {
		fmt.Println("ERROR:", err.Error())
		os.Exit(1)
	}

	fmt.Println("docid:", id)
}

func runDelete(c configuration.Configuration, logger *log.Logger, args []string) {
	if c.ReadOnly {
		fmt.Println("ERROR: database opened read-only")
		os.Exit(1)
	}
	if len(args) != 1 {
		fmt.Println("usage: idxctl delete <docid>")
		os.Exit(1)
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Println("ERROR: invalid docid:", err.Error())
		os.Exit(1)
	}

	wdb, err := database.OpenWritable(c.Dir, c.PerformRecovery, c.BlockSize, logger)
	if err != nil {
		fmt.Println("ERROR:", err.Error())
		os.Exit(1)
	}
	defer wdb.Close()

	if err := wdb.BeginSession(5 * time.Second); err != nil {
		fmt.Println("ERROR:", err.Error())
		os.Exit(1)
	}

	if err := wdb.DeleteDocument(types.DocID(id)); err != nil {
		fmt.Println("ERROR:", err.Error())
		os.Exit(1)
	}

	if err := wdb.EndSession(); err != nil {
		fmt.Println("ERROR:", err.Error())
		os.Exit(1)
	}

	fmt.Println("deleted:", id)
}
