// Package memory provides an in-memory implementation of the repositories
// with the same uniqueness and transaction guarantees as the MongoDB one.
// It backs the service and handler tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"github.com/ticketdesk/lottery-backoffice/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.Transactor = (*Store)(nil)

type txKey struct{}

type ticketKey struct {
	lotteryID primitive.ObjectID
	number    int
}

type state struct {
	lotteries map[primitive.ObjectID]models.Lottery
	tickets   map[primitive.ObjectID]models.Ticket
	numbers   map[ticketKey]primitive.ObjectID
	customers map[string]models.Customer
	sellers   map[primitive.ObjectID]models.Seller
}

func newState() state {
	return state{
		lotteries: make(map[primitive.ObjectID]models.Lottery),
		tickets:   make(map[primitive.ObjectID]models.Ticket),
		numbers:   make(map[ticketKey]primitive.ObjectID),
		customers: make(map[string]models.Customer),
		sellers:   make(map[primitive.ObjectID]models.Seller),
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.lotteries {
		v.Prizes = append([]models.Prize(nil), v.Prizes...)
		v.WinningTicketNumber = append([]int(nil), v.WinningTicketNumber...)
		c.lotteries[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.numbers {
		c.numbers[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.sellers {
		c.sellers[k] = v
	}
	return c
}

// Store holds all collections behind a single mutex. A transaction holds the
// mutex for its whole duration and restores a snapshot if fn fails.
type Store struct {
	mu     sync.Mutex
	data   state
	faults map[string]error
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{data: newState(), faults: make(map[string]error)}
}

// WithTransaction runs fn with exclusive access; any error rolls back every write fn made
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == s {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// InjectFault makes the named operation fail with err until cleared with a nil err
func (s *Store) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// lock acquires the store mutex unless ctx already belongs to a running transaction
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) fault(op string) error {
	if err, ok := s.faults[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Lotteries returns the lottery repository view of the store
func (s *Store) Lotteries() *LotteryRepository { return &LotteryRepository{s: s} }

// Tickets returns the ticket repository view of the store
func (s *Store) Tickets() *TicketRepository { return &TicketRepository{s: s} }

// Customers returns the customer repository view of the store
func (s *Store) Customers() *CustomerRepository { return &CustomerRepository{s: s} }

// Sellers returns the seller repository view of the store
func (s *Store) Sellers() *SellerRepository { return &SellerRepository{s: s} }

// PutSeller stores a seller; seller records are managed outside this service
func (s *Store) PutSeller(seller models.Seller) models.Seller {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seller.ID.IsZero() {
		seller.ID = primitive.NewObjectID()
	}
	s.data.sellers[seller.ID] = seller
	return seller
}

// DeleteSeller removes a seller record
func (s *Store) DeleteSeller(id primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.sellers, id)
}
