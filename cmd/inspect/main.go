// Command inspect dumps the messages stored in a BadgerDB directory.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"socialchat/repositories"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	// Defaults to every room, "msg:1:" narrows the scan to the lobby
	prefix := flag.String("prefix", repositories.MessagePrefix, "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Seq", "Room", "Timestamp", "Message ID", "Sender", "Content"})
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

	var count, broken int
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			rawKey := string(item.Key())

			err := item.Value(func(v []byte) error {
				message, err := repositories.DecodeMessage(v)
				if err != nil {
					// Keep scanning, one bad record must not hide the others
					broken++
					fmt.Println(color.Red.Sprintf("Error decoding key %s: %v", rawKey, err))
					return nil
				}

				displayID := message.ID.String()[:8]
				content := message.Content
				if len(content) > 60 {
					content = content[:57] + "..."
				}

				table.Append([]string{
					rawKey,
					fmt.Sprintf("%d", message.Seq),
					fmt.Sprintf("%d", message.Room),
					message.CreatedAt.Format("2006-01-02 15:04:05.000"),
					displayID,
					message.Author(),
					content,
				})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	fmt.Println(color.New(color.FgGreen, color.OpBold).Sprintf("%d message(s) under %q", count, *prefix))
	if broken > 0 {
		fmt.Println(color.Yellow.Sprintf("%d record(s) could not be decoded", broken))
	}
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil {
		// A crashed writer leaves a value log that must be truncated once in write mode
		if strings.Contains(err.Error(), "Log truncate required") {
			fmt.Println(color.Yellow.Sprint("⚠️  Value log needs truncation, repairing"))
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}
			_ = db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
