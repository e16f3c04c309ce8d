package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"book-vault/ledger"
	"book-vault/library"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// app carries the wired components for one CLI invocation.
type app struct {
	cfg     Config
	storage library.Storage
	manager *library.LibraryManager
	client  *ledger.Client
	wallet  *ledger.Wallet
	node    ledger.Node
}

// readPassword securely reads a passphrase with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

func (a *app) setup(configPath string, ledgerOverride *bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	storage, err := library.OpenSQLiteStorage(cfg.StoragePath)
	if err != nil {
		return err
	}
	a.storage = storage

	catalog, err := library.NewCatalog(storage, library.SystemClock())
	if err != nil {
		return err
	}

	// The sim network stands in for a remote node; with no deployed program
	// reachable, ledger submissions classify as failures and the manager
	// falls back to the local catalog.
	a.node = ledger.NewSimLedger()

	ledgerMode := cfg.Backend == "ledger"
	if ledgerOverride != nil {
		ledgerMode = *ledgerOverride
	}

	a.client = ledger.NewClient(
		ledger.WithNode(a.node),
		ledger.WithModuleAddress(cfg.ModuleAddress),
	)
	a.manager = library.NewLibraryManager(catalog,
		library.WithGateway(a.client),
		library.WithLedgerMode(ledgerMode),
	)
	return nil
}

// unlockWallet opens the configured keystore (creating it on demand when
// create is true) and connects it as the client's signing agent.
func (a *app) unlockWallet(ctx context.Context, create bool) error {
	if _, err := os.Stat(a.cfg.KeystorePath); os.IsNotExist(err) {
		if !create {
			return fmt.Errorf("no keystore at %s (run 'book-vault wallet init')", a.cfg.KeystorePath)
		}
		passphrase, err := readPassword("Choose a keystore passphrase: ")
		if err != nil {
			return fmt.Errorf("read passphrase: %w", err)
		}
		wallet, err := ledger.NewWallet(a.node)
		if err != nil {
			return err
		}
		if err := wallet.SaveKeystore(a.cfg.KeystorePath, passphrase); err != nil {
			return err
		}
		a.wallet = wallet
	} else {
		passphrase, err := readPassword("Keystore passphrase: ")
		if err != nil {
			return fmt.Errorf("read passphrase: %w", err)
		}
		wallet, err := ledger.LoadKeystore(a.cfg.KeystorePath, passphrase, a.node)
		if err != nil {
			return err
		}
		a.wallet = wallet
	}

	if a.cfg.Network != "" {
		a.wallet.SetNetworkName(a.cfg.Network)
	}
	if _, err := a.wallet.Connect(ctx); err != nil {
		return err
	}
	a.client.SetAgent(a.wallet)
	return nil
}

// resolveBorrower picks the acting party: an explicit flag wins, otherwise
// the unlocked wallet's address.
func (a *app) resolveBorrower(ctx context.Context, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if a.wallet == nil {
		if err := a.unlockWallet(ctx, false); err != nil {
			return "", fmt.Errorf("no --borrower given and wallet unavailable: %w", err)
		}
	}
	return a.wallet.Address(), nil
}

func printBooks(books []library.Book) {
	if len(books) == 0 {
		fmt.Println("(no books)")
		return
	}
	fmt.Printf("%-36s %-35s %-22s %-20s %s\n", "ID", "TITLE", "AUTHOR", "CATEGORY", "STATUS")
	for _, b := range books {
		status := "available"
		if b.IsBorrowed {
			status = "borrowed by " + truncateString(b.BorrowedBy, 12)
		}
		fmt.Printf("%-36s %-35s %-22s %-20s %s\n",
			b.ID, truncateString(b.Title, 35), truncateString(b.Author, 22), truncateString(b.Category, 20), status)
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func reportReceipt(action string, rec library.Receipt) {
	switch {
	case rec.Backend == library.BackendLedger:
		fmt.Printf("%s on ledger, transaction %s\n", action, rec.TxID)
	case rec.Degraded:
		fmt.Printf("%s via local storage (ledger unavailable: %v)\n", action, rec.Reason)
	default:
		fmt.Printf("%s locally\n", action)
	}
}

func main() {
	a := &app{}
	var configPath string
	var ledgerFlag bool

	root := &cobra.Command{
		Use:           "book-vault",
		Short:         "A book lending catalog backed by local storage or a ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var override *bool
			if cmd.Flags().Changed("ledger") {
				override = &ledgerFlag
			}
			return a.setup(configPath, override)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.storage != nil {
				a.storage.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigFile, "config file")
	root.PersistentFlags().BoolVar(&ledgerFlag, "ledger", false, "try the ledger backend first")

	var in library.NewBookInput
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.manager.AddBook(in)
			if err != nil {
				return err
			}
			fmt.Printf("Added book %s\n", id)
			return nil
		},
	}
	addCmd.Flags().StringVar(&in.Title, "title", "", "book title")
	addCmd.Flags().StringVar(&in.Author, "author", "", "book author")
	addCmd.Flags().StringVar(&in.Category, "category", "", "book category")
	addCmd.Flags().StringVar(&in.ISBN, "isbn", "", "ISBN")
	addCmd.Flags().StringVar(&in.Edition, "edition", "", "edition")
	addCmd.Flags().StringVar(&in.Description, "description", "", "description")

	var listAvailable, listBorrowed bool
	var listBorrower, listCategory string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List books in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			var books []library.Book
			var err error
			switch {
			case listAvailable:
				books, err = a.manager.AvailableBooks()
			case listBorrowed:
				books, err = a.manager.BorrowedBooks(listBorrower)
			case listCategory != "":
				books, err = a.manager.BooksByCategory(listCategory)
			default:
				books, err = a.manager.AllBooks()
			}
			if err != nil {
				return err
			}
			printBooks(books)
			return nil
		},
	}
	listCmd.Flags().BoolVar(&listAvailable, "available", false, "only available books")
	listCmd.Flags().BoolVar(&listBorrowed, "borrowed", false, "only borrowed books")
	listCmd.Flags().StringVar(&listBorrower, "borrower", "", "filter borrowed books by borrower")
	listCmd.Flags().StringVar(&listCategory, "category", "", "filter by category")

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search books by title, author, category, or ISBN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := a.manager.SearchBooks(args[0])
			if err != nil {
				return err
			}
			printBooks(books)
			return nil
		},
	}

	categoriesCmd := &cobra.Command{
		Use:   "categories",
		Short: "List distinct categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := a.manager.Categories()
			if err != nil {
				return err
			}
			for _, c := range categories {
				fmt.Println(c)
			}
			return nil
		},
	}

	var borrower string
	borrowCmd := &cobra.Command{
		Use:   "borrow <book-id>",
		Short: "Borrow a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if a.manager.LedgerMode() {
				if err := a.unlockWallet(ctx, false); err != nil {
					fmt.Fprintf(os.Stderr, "WARN: wallet unavailable, ledger submissions will fall back: %v\n", err)
				}
			}
			who, err := a.resolveBorrower(ctx, borrower)
			if err != nil {
				return err
			}
			rec, err := a.manager.Borrow(ctx, args[0], who)
			if err != nil {
				return err
			}
			reportReceipt("Borrowed", rec)
			return nil
		},
	}
	borrowCmd.Flags().StringVar(&borrower, "borrower", "", "borrower address (defaults to wallet address)")

	var returner string
	returnCmd := &cobra.Command{
		Use:   "return <book-id>",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if a.manager.LedgerMode() {
				if err := a.unlockWallet(ctx, false); err != nil {
					fmt.Fprintf(os.Stderr, "WARN: wallet unavailable, ledger submissions will fall back: %v\n", err)
				}
			}
			who, err := a.resolveBorrower(ctx, returner)
			if err != nil {
				return err
			}
			rec, err := a.manager.Return(ctx, args[0], who)
			if err != nil {
				return err
			}
			reportReceipt("Returned", rec)
			return nil
		},
	}
	returnCmd.Flags().StringVar(&returner, "borrower", "", "borrower address (defaults to wallet address)")

	walletCmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the local signing wallet",
	}
	walletCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the keystore",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.unlockWallet(cmd.Context(), true); err != nil {
				return err
			}
			fmt.Printf("Wallet ready: %s\n", a.wallet.Address())
			return nil
		},
	})
	walletCmd.AddCommand(&cobra.Command{
		Use:   "address",
		Short: "Show the wallet address",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.unlockWallet(cmd.Context(), false); err != nil {
				return err
			}
			fmt.Println(a.wallet.Address())
			return nil
		},
	})

	chainCmd := &cobra.Command{
		Use:   "chain",
		Short: "Inspect and initialize the on-ledger library",
	}
	chainCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Publish a library resource under the wallet account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.unlockWallet(ctx, false); err != nil {
				return err
			}
			res, err := a.client.InitLibrary(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Library initialized, transaction %s\n", res.TransactionID)
			return nil
		},
	})
	var chainBook library.NewBookInput
	chainAddCmd := &cobra.Command{
		Use:   "add",
		Short: "Register a book in the on-ledger library",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.unlockWallet(ctx, false); err != nil {
				return err
			}
			res, err := a.client.SubmitAddBook(ctx, chainBook.Title, chainBook.Author, chainBook.Category, chainBook.Description)
			if err != nil {
				return err
			}
			fmt.Printf("Book registered, transaction %s\n", res.TransactionID)
			return nil
		},
	}
	chainAddCmd.Flags().StringVar(&chainBook.Title, "title", "", "book title")
	chainAddCmd.Flags().StringVar(&chainBook.Author, "author", "", "book author")
	chainAddCmd.Flags().StringVar(&chainBook.Category, "category", "", "book category")
	chainAddCmd.Flags().StringVar(&chainBook.Description, "description", "", "description")
	chainCmd.AddCommand(chainAddCmd)

	chainCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the on-ledger library state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			owner := a.cfg.LibraryAddress
			if owner == "" {
				if err := a.unlockWallet(ctx, false); err != nil {
					return err
				}
				owner = a.wallet.Address()
			}
			if !a.client.LibraryExists(ctx, owner) {
				fmt.Printf("No library published under %s\n", owner)
				return nil
			}
			fmt.Printf("Library at %s holds %d books\n", owner, a.client.BookCount(ctx, owner))
			for _, b := range a.client.AllBooks(ctx, owner) {
				status := "available"
				if b.IsBorrowed {
					status = "borrowed by " + truncateString(b.BorrowedBy, 12)
				}
				fmt.Printf("  [%s] %s by %s (%s)\n", b.ID, b.Title, b.Author, status)
			}
			return nil
		},
	})

	root.AddCommand(addCmd, listCmd, searchCmd, categoriesCmd, borrowCmd, returnCmd, walletCmd, chainCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
