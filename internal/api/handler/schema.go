package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/studyon/coursehub/internal/core/domain"
	"github.com/studyon/coursehub/internal/core/ports"
)

// --- Requests ---

type loginRequest struct {
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
}

type registerRequest struct {
	Email           string `json:"email"            form:"email"`
	Password        string `json:"password"         form:"password"`
	PasswordConfirm string `json:"password_confirm" form:"password_confirm"`
}

type courseRequest struct {
	Code        string          `json:"code"        form:"code"`
	Name        string          `json:"name"        form:"name"`
	Description string          `json:"description" form:"description"`
	Type        string          `json:"type"        form:"type"`
	Price       decimal.Decimal `json:"price"       form:"price"`
}

func (r courseRequest) toInput() ports.CourseInput {
	return ports.CourseInput{
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		Type:        domain.CourseType(r.Type),
		Price:       r.Price,
	}
}

type lessonRequest struct {
	Name    string `json:"name"    form:"name"`
	Content string `json:"content" form:"content"`
	Serial  int    `json:"serial"  form:"serial"`
}

func (r lessonRequest) toInput() ports.LessonInput {
	return ports.LessonInput{Name: r.Name, Content: r.Content, Serial: r.Serial}
}

// --- Responses ---

type userResponse struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

func newUserResponse(p *domain.Principal) userResponse {
	return userResponse{Email: p.Email, Roles: domain.NormalizeRoles(p.Roles)}
}

type sessionResponse struct {
	User userResponse `json:"user"`
}

type profileResponse struct {
	Username string   `json:"username"`
	Balance  string   `json:"balance"`
	Roles    []string `json:"roles"`
}

type courseSummary struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type transactionResponse struct {
	ID         int64          `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	Type       string         `json:"type"`
	CourseCode string         `json:"course_code,omitempty"`
	Course     *courseSummary `json:"course,omitempty"`
	Amount     string         `json:"amount"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
}

func newTransactionResponse(v ports.TransactionView) transactionResponse {
	out := transactionResponse{
		ID:         v.ID,
		CreatedAt:  v.CreatedAt,
		Type:       v.Type,
		CourseCode: v.CourseCode,
		Amount:     v.Amount,
		ExpiresAt:  v.ExpiresAt,
	}
	if v.Course != nil {
		out.Course = &courseSummary{ID: v.Course.ID, Code: v.Course.Code, Name: v.Course.Name}
	}
	return out
}

type priceTagResponse struct {
	Type      string     `json:"type"`
	Price     string     `json:"price"`
	State     string     `json:"state"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Label     string     `json:"label"`
}

type courseListingResponse struct {
	*domain.Course
	PriceTag *priceTagResponse `json:"price_tag,omitempty"`
}

func newCourseListingResponse(l ports.CourseListing) courseListingResponse {
	out := courseListingResponse{Course: l.Course}
	if l.Tag != nil {
		out.PriceTag = &priceTagResponse{
			Type:      string(l.Tag.Type),
			Price:     l.Tag.Price.StringFixed(2),
			State:     string(l.Tag.State),
			ExpiresAt: l.Tag.ExpiresAt,
			Label:     l.Tag.Label,
		}
	}
	return out
}

type billingCourseResponse struct {
	Type  string `json:"type"`
	Price string `json:"price"`
}

type courseDetailResponse struct {
	Course         *domain.Course         `json:"course"`
	Lessons        []*domain.Lesson       `json:"lessons"`
	Billing        *billingCourseResponse `json:"billing,omitempty"`
	Balance        string                 `json:"balance,omitempty"`
	IsPaid         bool                   `json:"is_paid"`
	PaymentMessage string                 `json:"payment_message,omitempty"`
	CSRFToken      string                 `json:"csrf_token,omitempty"`
}

func newCourseDetailResponse(d *ports.CourseDetail, csrf string) courseDetailResponse {
	lessons := d.Lessons
	if lessons == nil {
		lessons = []*domain.Lesson{}
	}
	out := courseDetailResponse{
		Course:         d.Course,
		Lessons:        lessons,
		IsPaid:         d.IsPaid,
		PaymentMessage: d.PaymentMessage,
		CSRFToken:      csrf,
	}
	if d.BillingCourse != nil {
		out.Billing = &billingCourseResponse{
			Type:  string(d.BillingCourse.Type),
			Price: d.BillingCourse.Price.StringFixed(2),
		}
	}
	if d.BillingUser != nil {
		out.Balance = d.BillingUser.Balance.StringFixed(2)
	}
	return out
}
