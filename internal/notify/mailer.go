package notify

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ADI-2707/BillSwift/internal/common"
	"github.com/ADI-2707/BillSwift/internal/store"
)

// Mailer composes and sends the account lifecycle emails. Every method is
// fire and forget: failures are logged, never returned.
type Mailer struct {
	Mail       common.EmailSender
	AdminEmail string
	Log        zerolog.Logger
}

// SignupReceived acknowledges a new signup to the applicant.
func (m *Mailer) SignupReceived(u store.User) {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your BillSwift account has been created and is waiting for admin approval.
You will receive another email once it is activated.</p>`, u.FirstName)
	m.send(u.Email, "BillSwift: account pending approval", body)
}

// SignupPendingAdmin tells the admin an account is waiting for approval.
func (m *Mailer) SignupPendingAdmin(u store.User) {
	if m.AdminEmail == "" {
		return
	}
	body := fmt.Sprintf(`<p>A new BillSwift signup is waiting for approval:</p>
<ul>
<li>Name: %s %s</li>
<li>Email: %s</li>
<li>Employee code: %s</li>
<li>Team: %s</li>
</ul>`, u.FirstName, u.LastName, u.Email, u.EmployeeCode, u.Team)
	m.send(m.AdminEmail, "BillSwift: signup awaiting approval", body)
}

// AccountApproved tells the applicant their account is active.
func (m *Mailer) AccountApproved(u store.User) {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Your BillSwift account has been approved. You can log in now.</p>`, u.FirstName)
	m.send(u.Email, "BillSwift: account approved", body)
}

func (m *Mailer) send(to, subject, body string) {
	if m.Mail == nil || to == "" {
		return
	}
	if err := m.Mail.Send(to, subject, body); err != nil {
		m.Log.Warn().Err(err).Str("to", to).Str("subject", subject).Msg("email send failed")
	}
}
