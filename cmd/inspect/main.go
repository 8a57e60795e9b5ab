package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"courier/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// Offline viewer for a courier database. Scans message records by default;
// pass -prefix user: to list accounts instead.
func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg: or user:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	header := fmt.Sprintf("  ====== courier inspect %s ======", *prefix)
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(header))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	switch {
	case strings.HasPrefix(*prefix, "user:"):
		table.SetHeader([]string{"Key", "ID", "Username", "Created"})
		err = scan(db, *prefix, func(key string, value []byte) {
			var user repositories.User
			if err := json.Unmarshal(value, &user); err != nil {
				fmt.Printf("Error unmarshaling key %s: %v\n", key, err)
				return
			}
			table.Append([]string{key, shortID(user.ID), user.Username,
				user.CreatedAt.Format("2006-01-02 15:04:05")})
		})
	default:
		table.SetHeader([]string{"Key", "Timestamp", "Sender", "Recipient", "Text", "File"})
		err = scan(db, *prefix, func(key string, value []byte) {
			var message repositories.DiskMessage
			if err := json.Unmarshal(value, &message); err != nil {
				fmt.Printf("Error unmarshaling key %s: %v\n", key, err)
				return
			}
			table.Append([]string{
				key,
				message.At.Format("15:04:05"),
				shortID(message.Sender),
				shortID(message.Recipient),
				message.Text,
				message.FileRef,
			})
		})
	}
	if err != nil {
		log.Fatal(err)
	}

	table.Render()

	if strings.HasPrefix(*prefix, "msg:") {
		count, err := repositories.NewMessageRepository(db, slog.Default(), nil).CountConversations()
		if err == nil {
			fmt.Printf("\n%d distinct conversations\n", count)
		}
	}
}

func scan(db *badger.DB, prefix string, emit func(key string, value []byte)) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if err := item.Value(func(v []byte) error {
				emit(key, v)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// shortID keeps the first 8 characters for readability.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		// A previous unclean shutdown can require a truncating open
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}
			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
