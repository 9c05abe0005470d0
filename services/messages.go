package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/gymease/backend/models"
	"github.com/gymease/backend/utils"
)

const dateLayout = "02 Jan 2006"

func welcomeMessage(user *models.User) string {
	code := ""
	if user.Profile.MemberCode != nil {
		code = *user.Profile.MemberCode
	}
	return fmt.Sprintf(
		"Selamat %s, pendaftaran akun berhasil dengan biodata sebagai berikut:\n\n"+
			"Email: %s\nAlamat: %s\nTempat Lahir: %s\nTanggal Lahir: %s\nID Member: %s\n\n"+
			"Terima kasih sudah bergabung dengan %s!",
		user.Username, user.Email, user.Profile.Address, user.Profile.BirthPlace,
		user.Profile.BirthDate, code, utils.AppName,
	)
}

func paymentLinkMessage(trx *models.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Halo %s, pesanan %s berhasil dibuat.\n\n", memberName(trx), trx.Code)
	fmt.Fprintf(&b, "Paket: %s\n", productLabel(trx))
	if trx.Promo != nil {
		fmt.Fprintf(&b, "Promo: %s (%s%%)\n", trx.Promo.Name, trx.DiscountPercent.String())
	}
	fmt.Fprintf(&b, "Total: %s\n", utils.FormatRupiah(trx.TotalAmount))
	fmt.Fprintf(&b, "Bayar sebelum: %s\n\n", trx.ExpiresAt.Format("02 Jan 2006 15:04"))
	b.WriteString("Silakan scan QRIS pada halaman pesanan untuk menyelesaikan pembayaran.")
	return b.String()
}

func paidMessage(trx *models.Transaction) string {
	return fmt.Sprintf(
		"Pembayaran %s sebesar %s berhasil.\n\nMembership %s aktif %s s/d %s.\n\nTerima kasih, %s!",
		trx.Code, utils.FormatRupiah(trx.TotalAmount), productLabel(trx),
		trx.MembershipStart.Format(dateLayout), lastDay(trx).Format(dateLayout), utils.AppName,
	)
}

func receiptEmail(trx *models.Transaction) string {
	return fmt.Sprintf(`
		<h2>%s payment receipt</h2>
		<p>Hi %s, we received your payment for <strong>%s</strong>.</p>
		<table>
			<tr><td>Transaction</td><td>%s</td></tr>
			<tr><td>Base price</td><td>%s</td></tr>
			<tr><td>Discount</td><td>%s%%</td></tr>
			<tr><td>Total paid</td><td>%s</td></tr>
			<tr><td>Membership</td><td>%s - %s</td></tr>
		</table>
	`, utils.AppName, memberName(trx), productLabel(trx), trx.Code,
		utils.FormatRupiah(trx.BasePrice), trx.DiscountPercent.String(), utils.FormatRupiah(trx.TotalAmount),
		trx.MembershipStart.Format(dateLayout), lastDay(trx).Format(dateLayout))
}

// lastDay is the final day covered by the half-open membership window
func lastDay(trx *models.Transaction) time.Time {
	if !trx.MembershipEnd.After(trx.MembershipStart) {
		return trx.MembershipStart
	}
	return trx.MembershipEnd.AddDate(0, 0, -1)
}

func memberName(trx *models.Transaction) string {
	if trx.Member == nil {
		return "Member"
	}
	return trx.Member.FullName()
}

func productLabel(trx *models.Transaction) string {
	if trx.Product == nil {
		return fmt.Sprintf("Paket #%d", trx.ProductID)
	}
	return trx.Product.Tier.Label()
}

// contactOf returns the member's phone and email, empty when the member is gone
func contactOf(trx *models.Transaction) (phone, email string) {
	if trx.Member == nil {
		return "", ""
	}
	return trx.Member.Profile.Phone, trx.Member.Email
}
