package services

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/phpdave11/gofpdf"

	"travelbackend/internal/auth"
	"travelbackend/internal/domain"
	"travelbackend/internal/domain/models"
	"travelbackend/internal/repositories"
	"travelbackend/internal/utils"
)

// InvoiceService renders the booking invoice once payment settled.
type InvoiceService struct {
	BookingRepo repositories.BookingRepository
	TripRepo    repositories.TripRepository
	PaymentRepo repositories.PaymentRepository
	RequestID   string
}

// GenerateInvoice returns PDF bytes and a suggested filename. Only the
// booking owner or a payment viewer may download, and only once PAID.
func (s InvoiceService) GenerateInvoice(bookingID int64, actor auth.Actor) ([]byte, string, error) {
	booking, err := s.BookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, "", err
	}
	if booking.UserID != actor.UserID {
		if err := auth.Require(actor, auth.PermPaymentView); err != nil {
			return nil, "", err
		}
	}
	if booking.PaymentStatus != models.PaymentPaid {
		return nil, "", domain.InvalidStateError{Resource: "booking", Msg: "invoice available after payment"}
	}

	trip, err := s.TripRepo.GetByID(booking.TripID)
	if err != nil {
		return nil, "", err
	}
	guests, err := s.BookingRepo.GetGuests(bookingID)
	if err != nil {
		return nil, "", err
	}
	payment, found, err := s.PaymentRepo.GetCapturedByBooking(nil, bookingID)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, "", domain.InvalidStateError{Resource: "payment", Msg: "no captured payment on record"}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Booking Invoice")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 11)
	line := func(label, value string) {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(45, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
	}

	line("Invoice No.", fmt.Sprintf("INV-%06d", booking.ID))
	line("Issued", utils.FormatDate(utils.NowUTC()))
	line("Booking ID", strconv.FormatInt(booking.ID, 10))
	line("Trip", trip.Title)
	line("Start Date", booking.StartDate)
	line("Guests", strconv.Itoa(booking.Guests))
	line("Payment Ref", payment.ProviderPaymentID)
	line("Method", string(payment.Method))
	line("Amount Paid", utils.FormatINR(payment.AmountMinor))
	pdf.Ln(6)

	if len(guests) > 0 {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(10, 7, "#", "1", 0, "C", false, 0, "")
		pdf.CellFormat(90, 7, "Traveler", "1", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, "Phone", "1", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		for i, g := range guests {
			pdf.CellFormat(10, 7, strconv.Itoa(i+1), "1", 0, "C", false, 0, "")
			pdf.CellFormat(90, 7, g.Name, "1", 0, "L", false, 0, "")
			pdf.CellFormat(0, 7, g.Phone, "1", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", domain.InternalError{Err: err}
	}

	filename := fmt.Sprintf("invoice-booking-%d.pdf", booking.ID)
	return buf.Bytes(), filename, nil
}
