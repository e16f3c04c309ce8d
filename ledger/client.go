package ledger

import (
	"context"
	"log"
	"strconv"

	"github.com/fxamacker/cbor/v2"
)

// DefaultModuleAddress is the account the library program is published under
// when no deployment address is configured.
const DefaultModuleAddress = "0x1"

// AccountInfo identifies the account a signing agent controls.
type AccountInfo struct {
	Address string
}

// NetworkInfo describes the network a signing agent is connected to.
type NetworkInfo struct {
	Name string
}

// PendingTransaction is the handle a signing agent returns after submission,
// before finality is observed.
type PendingTransaction struct {
	Hash string
}

// TransactionResult reports a submitted ledger operation. Confirmed is true
// once the node has observed the transaction as finalized.
type TransactionResult struct {
	TransactionID string
	Confirmed     bool
}

// SigningAgent is the user-controlled component holding keys. The gateway
// treats a nil agent as AgentUnavailable; there is no runtime probing.
type SigningAgent interface {
	Connect(ctx context.Context) (AccountInfo, error)
	Disconnect(ctx context.Context) error
	SignAndSubmit(ctx context.Context, payload EntryFunctionPayload) (PendingTransaction, error)
	Network(ctx context.Context) (NetworkInfo, error)
}

// Node is the remote ledger endpoint used for finality waits and read-only
// view calls. View results are cbor-encoded values, one per returned value.
type Node interface {
	SubmitTransaction(ctx context.Context, signed SignedTransaction) (string, error)
	WaitForTransaction(ctx context.Context, hash string) error
	View(ctx context.Context, req ViewRequest) ([][]byte, error)
}

// BookView is a book as reported by the program's views.
type BookView struct {
	ID          string `cbor:"id"`
	Title       string `cbor:"title"`
	Author      string `cbor:"author"`
	Category    string `cbor:"category"`
	Description string `cbor:"description"`
	IsBorrowed  bool   `cbor:"is_borrowed"`
	BorrowedBy  string `cbor:"borrowed_by"`
}

// Client is a stateless façade translating lend/return intents into program
// calls. It owns no persistent state; the ledger itself is the source of
// truth for everything it reports.
type Client struct {
	agent         SigningAgent
	node          Node
	moduleAddress string
	logger        *log.Logger
}

// ClientOptionFunc is a type that represents functions that modify the Client config
type ClientOptionFunc func(*Client)

// WithAgent specifies the signing agent to submit through. Without one, all
// submissions fail as AgentUnavailable.
func WithAgent(agent SigningAgent) ClientOptionFunc {
	return func(c *Client) {
		c.agent = agent
	}
}

// WithNode specifies the ledger node used for finality waits and views.
func WithNode(node Node) ClientOptionFunc {
	return func(c *Client) {
		c.node = node
	}
}

// WithModuleAddress specifies the account the library program is published under.
func WithModuleAddress(address string) ClientOptionFunc {
	return func(c *Client) {
		c.moduleAddress = address
	}
}

// WithLogger specifies the logger for degraded view queries.
func WithLogger(logger *log.Logger) ClientOptionFunc {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(options ...ClientOptionFunc) *Client {
	c := &Client{
		moduleAddress: DefaultModuleAddress,
		logger:        log.Default(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// SetAgent swaps the signing agent, e.g. after the user connects a wallet.
func (c *Client) SetAgent(agent SigningAgent) { c.agent = agent }

func (c *Client) function(name string) string {
	return c.moduleAddress + "::Library::" + name
}

// InitLibrary publishes an empty library resource under the signer's account.
// Call once after deployment.
func (c *Client) InitLibrary(ctx context.Context) (TransactionResult, error) {
	return c.submit(ctx, EntryFunctionPayload{
		Type:     entryFunctionPayloadType,
		Function: c.function("init_library"),
	})
}

// SubmitAddBook registers a new book in the on-ledger library.
func (c *Client) SubmitAddBook(ctx context.Context, title, author, category, description string) (TransactionResult, error) {
	return c.submit(ctx, EntryFunctionPayload{
		Type:      entryFunctionPayloadType,
		Function:  c.function("add_book"),
		Arguments: []string{title, author, category, description},
	})
}

// SubmitLend borrows the book on the ledger, blocking until the node reports
// finality or a terminal failure. The program resolves the library from the
// transaction sender, so owner must be the connected agent's account.
func (c *Client) SubmitLend(ctx context.Context, owner, bookID string) (TransactionResult, error) {
	return c.submit(ctx, EntryFunctionPayload{
		Type:      entryFunctionPayloadType,
		Function:  c.function("borrow_book"),
		Arguments: []string{bookID},
	})
}

// SubmitReturn returns the book on the ledger, blocking until the node
// reports finality or a terminal failure. As with SubmitLend, owner must be
// the connected agent's account.
func (c *Client) SubmitReturn(ctx context.Context, owner, bookID string) (TransactionResult, error) {
	return c.submit(ctx, EntryFunctionPayload{
		Type:      entryFunctionPayloadType,
		Function:  c.function("return_book"),
		Arguments: []string{bookID},
	})
}

func (c *Client) submit(ctx context.Context, payload EntryFunctionPayload) (TransactionResult, error) {
	if c.agent == nil {
		return TransactionResult{}, ErrAgentUnavailable
	}
	pending, err := c.agent.SignAndSubmit(ctx, payload)
	if err != nil {
		return TransactionResult{}, classify(err)
	}
	if c.node == nil {
		// No node to observe finality; the submission stands but stays
		// unconfirmed.
		return TransactionResult{TransactionID: pending.Hash}, nil
	}
	if err := c.node.WaitForTransaction(ctx, pending.Hash); err != nil {
		return TransactionResult{TransactionID: pending.Hash}, classify(err)
	}
	return TransactionResult{TransactionID: pending.Hash, Confirmed: true}, nil
}

// BookCount reports how many books the library at owner holds. An unreachable
// or erroring remote yields zero.
func (c *Client) BookCount(ctx context.Context, owner string) uint64 {
	values, err := c.view(ctx, "get_book_count", owner)
	if err != nil || len(values) == 0 {
		return 0
	}
	var count uint64
	if err := cbor.Unmarshal(values[0], &count); err != nil {
		c.logger.Printf("WARN: decode book count: %v", err)
		return 0
	}
	return count
}

// Book fetches one book by id from the library at owner. An unreachable or
// erroring remote, or an unknown id, yields nil.
func (c *Client) Book(ctx context.Context, owner, bookID string) *BookView {
	values, err := c.view(ctx, "get_book", owner, bookID)
	if err != nil || len(values) == 0 {
		return nil
	}
	var book BookView
	if err := cbor.Unmarshal(values[0], &book); err != nil {
		c.logger.Printf("WARN: decode book: %v", err)
		return nil
	}
	return &book
}

// LibraryExists reports whether a library resource is published at owner.
// An unreachable or erroring remote yields false.
func (c *Client) LibraryExists(ctx context.Context, owner string) bool {
	values, err := c.view(ctx, "library_exists", owner)
	if err != nil || len(values) == 0 {
		return false
	}
	var exists bool
	if err := cbor.Unmarshal(values[0], &exists); err != nil {
		c.logger.Printf("WARN: decode library_exists: %v", err)
		return false
	}
	return exists
}

// AllBooks iterates the library at owner by index. Any index that errors is
// skipped; an unreachable remote yields an empty slice.
func (c *Client) AllBooks(ctx context.Context, owner string) []BookView {
	count := c.BookCount(ctx, owner)
	books := make([]BookView, 0, count)
	for i := uint64(0); i < count; i++ {
		if book := c.Book(ctx, owner, formatIndex(i)); book != nil {
			books = append(books, *book)
		}
	}
	return books
}

func formatIndex(i uint64) string {
	return strconv.FormatUint(i, 10)
}

func (c *Client) view(ctx context.Context, name string, args ...string) ([][]byte, error) {
	if c.node == nil {
		return nil, &RemoteError{Message: "no node configured"}
	}
	values, err := c.node.View(ctx, ViewRequest{
		Function:  c.function(name),
		Arguments: args,
	})
	if err != nil {
		c.logger.Printf("WARN: view %s: %v", name, err)
		return nil, err
	}
	return values, nil
}
