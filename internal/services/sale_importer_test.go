package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaleImporter_Import(t *testing.T) {
	f := newFixture(t)
	lottery := f.newLottery(t, 10, 1)
	importer := NewSaleImporter(f.sales)

	sheet := strings.Join([]string{
		"Lottery_ID,Ticket_Number,Customer_Name,Customer_Phone,Seller_ID",
		fmt.Sprintf("%s,1,Amaka,08011111111,%s", lottery.ID.Hex(), f.staff.ID.Hex()),
		fmt.Sprintf("%s,2,Emeka,0802 222 2222,%s", lottery.ID.Hex(), f.agent.ID.Hex()),
		fmt.Sprintf("%s,1,Tunde,08033333333,%s", lottery.ID.Hex(), f.staff.ID.Hex()),
		fmt.Sprintf("%s,abc,Tunde,08033333333,%s", lottery.ID.Hex(), f.staff.ID.Hex()),
		fmt.Sprintf("%s,11,Tunde,08033333333,%s", lottery.ID.Hex(), f.staff.ID.Hex()),
		fmt.Sprintf("not-an-id,3,Tunde,08033333333,%s", f.staff.ID.Hex()),
		fmt.Sprintf("%s,4,Kemi,08044444444,%s", lottery.ID.Hex(), f.staff.ID.Hex()),
	}, "\n")

	report, err := importer.Import(context.Background(), strings.NewReader(sheet))
	require.NoError(t, err)
	assert.Equal(t, 7, report.TotalRows)
	assert.Equal(t, 3, report.Sold)
	assert.Equal(t, 1, report.Conflicts)
	assert.Equal(t, 3, report.Invalid)
	assert.Zero(t, report.Errors)

	assert.Equal(t, ImportConflict, report.Rows[2].Outcome)
	assert.Equal(t, 4, report.Rows[2].Line)
	assert.Equal(t, ImportSold, report.Rows[6].Outcome)
	assert.NotEmpty(t, report.Rows[6].TicketID)

	assert.Len(t, f.ticketsByNumber(t, lottery), 3)
}

func TestSaleImporter_BadHeader(t *testing.T) {
	f := newFixture(t)
	importer := NewSaleImporter(f.sales)

	_, err := importer.Import(context.Background(), strings.NewReader("name,phone\nA,0801\n"))
	assert.Error(t, err)

	_, err = importer.Import(context.Background(), strings.NewReader(""))
	assert.Error(t, err)
}
