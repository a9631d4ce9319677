package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ticketdesk/lottery-backoffice/internal/logger"
	"github.com/ticketdesk/lottery-backoffice/internal/models"
	"github.com/ticketdesk/lottery-backoffice/internal/repositories"
	"github.com/ticketdesk/lottery-backoffice/internal/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compile-time check to ensure CommissionCalculator implements CommissionService
var _ CommissionService = (*CommissionCalculator)(nil)

var hundred = decimal.NewFromInt(100)

// CommissionCalculator derives seller earnings from committed tickets. It never writes.
type CommissionCalculator struct {
	lotteryRepo repositories.LotteryRepository
	ticketRepo  repositories.TicketRepository
	sellerRepo  repositories.SellerRepository
	trendClamp  float64
	weekStart   time.Weekday
}

// NewCommissionCalculator creates a new CommissionCalculator
func NewCommissionCalculator(
	lotteryRepo repositories.LotteryRepository,
	ticketRepo repositories.TicketRepository,
	sellerRepo repositories.SellerRepository,
	trendClamp float64,
	weekStart time.Weekday,
) *CommissionCalculator {
	return &CommissionCalculator{
		lotteryRepo: lotteryRepo,
		ticketRepo:  ticketRepo,
		sellerRepo:  sellerRepo,
		trendClamp:  trendClamp,
		weekStart:   weekStart,
	}
}

// ForSale returns the commission on one ticket: the lottery's flat amount for
// staff, a percentage of the ticket price for agents
func (s *CommissionCalculator) ForSale(lottery *models.Lottery, seller *models.Seller) float64 {
	return commission(lottery, seller).InexactFloat64()
}

func commission(lottery *models.Lottery, seller *models.Seller) decimal.Decimal {
	if seller.Kind == models.SellerKindAgent {
		return decimal.NewFromFloat(lottery.TicketPrice).
			Mul(decimal.NewFromFloat(seller.CommissionRate)).
			Div(hundred).
			Round(2)
	}
	return decimal.NewFromFloat(lottery.CommissionPerTicket).Round(2)
}

// ForTicket returns the commission earned on a single ticket
func (s *CommissionCalculator) ForTicket(ctx context.Context, ticketID primitive.ObjectID) (*models.SaleCommission, error) {
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	lottery, err := s.lotteryRepo.FindByID(ctx, ticket.LotteryID)
	if err != nil {
		return nil, err
	}
	seller, err := s.sellerRepo.FindByID(ctx, ticket.SoldBy)
	if err != nil {
		return nil, err
	}
	return &models.SaleCommission{
		TicketID:   ticket.ID,
		SellerID:   seller.ID,
		SellerKind: seller.Kind,
		Amount:     s.ForSale(lottery, seller),
	}, nil
}

type tally struct {
	tickets    int
	revenue    decimal.Decimal
	commission decimal.Decimal
}

func (t *tally) add(revenue, commission decimal.Decimal) {
	t.tickets++
	t.revenue = t.revenue.Add(revenue)
	t.commission = t.commission.Add(commission)
}

// sellerTally holds the four buckets a report row is built from
type sellerTally struct {
	today, yesterday, week, lastWeek tally
}

func (st *sellerTally) add(soldAt time.Time, periods reportPeriods, revenue, commission decimal.Decimal) {
	if periods.today.Contains(soldAt) {
		st.today.add(revenue, commission)
	}
	if periods.yesterday.Contains(soldAt) {
		st.yesterday.add(revenue, commission)
	}
	if periods.week.Contains(soldAt) {
		st.week.add(revenue, commission)
	}
	if periods.lastWeek.Contains(soldAt) {
		st.lastWeek.add(revenue, commission)
	}
}

type reportPeriods struct {
	today, yesterday, week, lastWeek models.Period
}

func (s *CommissionCalculator) periods(now time.Time) reportPeriods {
	dayStart := utils.StartOfDay(now)
	today := models.Period{Start: dayStart, End: dayStart.AddDate(0, 0, 1)}
	weekStart := utils.StartOfWeek(now, s.weekStart)
	week := models.Period{Start: weekStart, End: weekStart.AddDate(0, 0, 7)}
	return reportPeriods{
		today:     today,
		yesterday: models.Period{Start: dayStart.AddDate(0, 0, -1), End: dayStart},
		week:      week,
		lastWeek:  models.Period{Start: weekStart.AddDate(0, 0, -7), End: weekStart},
	}
}

// Report aggregates sales per seller for today and this week, with trends
// against yesterday and last week. Tickets whose seller or lottery no longer
// exists are skipped and counted in Excluded.
func (s *CommissionCalculator) Report(ctx context.Context, now time.Time) (*models.CommissionReport, error) {
	log := logger.FromContext(ctx)
	p := s.periods(now)

	tickets, err := s.ticketRepo.FindSoldBetween(ctx, p.lastWeek.Start, p.week.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}

	lotteryIDs, sellerIDs := referencedIDs(tickets)
	lotteries, err := s.lotteryRepo.FindByIDs(ctx, lotteryIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load lotteries: %w", err)
	}
	sellers, err := s.sellerRepo.FindByIDs(ctx, sellerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load sellers: %w", err)
	}
	lotteryByID := make(map[primitive.ObjectID]*models.Lottery, len(lotteries))
	for _, l := range lotteries {
		lotteryByID[l.ID] = l
	}
	sellerByID := make(map[primitive.ObjectID]*models.Seller, len(sellers))
	for _, sl := range sellers {
		sellerByID[sl.ID] = sl
	}

	report := &models.CommissionReport{GeneratedAt: now, Sellers: []models.SellerCommission{}}
	perSeller := make(map[primitive.ObjectID]*sellerTally)
	var total sellerTally
	for _, t := range tickets {
		seller, ok := sellerByID[t.SoldBy]
		if !ok {
			report.Excluded++
			log.Warn("Ticket excluded from commission report: seller not found",
				"ticket_id", t.ID.Hex(), "seller_id", t.SoldBy.Hex())
			continue
		}
		lottery, ok := lotteryByID[t.LotteryID]
		if !ok {
			report.Excluded++
			log.Warn("Ticket excluded from commission report: lottery not found",
				"ticket_id", t.ID.Hex(), "lottery_id", t.LotteryID.Hex())
			continue
		}

		revenue := decimal.NewFromFloat(lottery.TicketPrice)
		earned := commission(lottery, seller)
		st, ok := perSeller[seller.ID]
		if !ok {
			st = &sellerTally{}
			perSeller[seller.ID] = st
		}
		st.add(t.SoldAt, p, revenue, earned)
		total.add(t.SoldAt, p, revenue, earned)
	}

	for id, st := range perSeller {
		seller := sellerByID[id]
		report.Sellers = append(report.Sellers, models.SellerCommission{
			SellerID:   seller.ID,
			SellerName: seller.Name,
			SellerKind: seller.Kind,
			Today:      s.bucket(p.today, st.today, st.yesterday),
			ThisWeek:   s.bucket(p.week, st.week, st.lastWeek),
		})
	}
	sort.Slice(report.Sellers, func(i, j int) bool {
		a, b := report.Sellers[i], report.Sellers[j]
		if a.ThisWeek.Commission != b.ThisWeek.Commission {
			return a.ThisWeek.Commission > b.ThisWeek.Commission
		}
		return a.SellerName < b.SellerName
	})
	report.Today = s.bucket(p.today, total.today, total.yesterday)
	report.ThisWeek = s.bucket(p.week, total.week, total.lastWeek)

	return report, nil
}

func (s *CommissionCalculator) bucket(period models.Period, cur, prev tally) models.BucketStats {
	return models.BucketStats{
		Period:          period,
		TicketsSold:     cur.tickets,
		Revenue:         cur.revenue.Round(2).InexactFloat64(),
		Commission:      cur.commission.Round(2).InexactFloat64(),
		TicketsTrend:    utils.Trend(float64(cur.tickets), float64(prev.tickets), s.trendClamp),
		CommissionTrend: utils.Trend(cur.commission.InexactFloat64(), prev.commission.InexactFloat64(), s.trendClamp),
	}
}

func referencedIDs(tickets []*models.Ticket) (lotteryIDs, sellerIDs []primitive.ObjectID) {
	seenLottery := make(map[primitive.ObjectID]bool)
	seenSeller := make(map[primitive.ObjectID]bool)
	for _, t := range tickets {
		if !seenLottery[t.LotteryID] {
			seenLottery[t.LotteryID] = true
			lotteryIDs = append(lotteryIDs, t.LotteryID)
		}
		if !seenSeller[t.SoldBy] {
			seenSeller[t.SoldBy] = true
			sellerIDs = append(sellerIDs, t.SoldBy)
		}
	}
	return lotteryIDs, sellerIDs
}
