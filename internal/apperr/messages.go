package apperr

// Message-catalog codes. Services reference codes; only the catalog below
// knows the localized texts. This replaces the bilingual duplicated message
// strings the nonprofit's previous system carried per endpoint.
const (
	CodeUserNotFound       = "user.not_found"
	CodeUserExists         = "user.exists"
	CodeUserSelfDelete     = "user.self_delete"
	CodeUserSelfDeactivate = "user.self_deactivate"
	CodeUserSaveFailed     = "user.save_failed"

	CodePermissionNotFound = "permission.not_found"

	CodeUnauthenticated     = "auth.unauthenticated"
	CodeMissingPermissions  = "auth.missing_permissions"
	CodeInvalidCredentials  = "auth.invalid_credentials"
	CodeInvalidToken        = "auth.invalid_token"
	CodeRefreshMissing      = "auth.refresh_missing"
	CodeRefreshInvalid      = "auth.refresh_invalid"
	CodePasswordMismatch    = "auth.password_mismatch"
	CodeRegistrationFailed  = "auth.registration_failed"

	CodeProductNotFound   = "product.not_found"
	CodeProductExists     = "product.exists"
	CodeProductHasLoans   = "product.has_loans"
	CodeProductSaveFailed = "product.save_failed"

	CodeInstanceNotFound      = "instance.not_found"
	CodeInstanceBarcodeExists = "instance.barcode_exists"
	CodeInstanceUnavailable   = "instance.unavailable"
	CodeInstanceOnLoan        = "instance.on_loan"
	CodeInstanceSaveFailed    = "instance.save_failed"

	CodeLoanNotFound    = "loan.not_found"
	CodeLoanNotOpen     = "loan.not_open"
	CodeLoanLostNotOpen = "loan.lost_not_open"
	CodeLoanCeiling     = "loan.ceiling"
	CodeLoanSaveFailed  = "loan.save_failed"

	CodeVolunteerNotFound     = "volunteer.not_found"
	CodeActivityNotFound      = "activity.not_found"
	CodeActivityHoursRange    = "activity.hours_range"
	CodeActivityFutureDate    = "activity.future_date"
	CodeActivitySelfOnly      = "activity.self_only"
	CodeActivityViewSelfOnly  = "activity.view_self_only"
	CodeActivitySaveFailed    = "activity.save_failed"

	CodeAuditNotFound = "audit.not_found"

	CodeInvalidRequest = "request.invalid"
	CodeInternal       = "internal"
)

type message struct {
	en string
	he string
}

var catalog = map[string]message{ //nolint:gochecknoglobals
	CodeUserNotFound:       {en: "user not found or inactive", he: "משתמש לא נמצא או לא פעיל"},
	CodeUserExists:         {en: "a user with this email already exists", he: "משתמש עם אימייל זה כבר קיים במערכת"},
	CodeUserSelfDelete:     {en: "you cannot delete your own account", he: "אין אפשרות למחוק את המשתמש שלך"},
	CodeUserSelfDeactivate: {en: "you cannot deactivate your own account", he: "אין אפשרות לכבות את המשתמש שלך"},
	CodeUserSaveFailed:     {en: "failed to save the user", he: "שגיאה בשמירת המשתמש"},

	CodePermissionNotFound: {en: "permission not found", he: "ההרשאה לא נמצאה"},

	CodeUnauthenticated:    {en: "authentication required", he: "משתמש לא מזוהה"},
	CodeMissingPermissions: {en: "missing permissions", he: "חסרות הרשאות"},
	CodeInvalidCredentials: {en: "invalid email or password", he: "פרטי התחברות לא נכונים"},
	CodeInvalidToken:       {en: "invalid or expired token", he: "אסימון לא תקין או שפג תוקפו"},
	CodeRefreshMissing:     {en: "no refresh token provided", he: "לא סופק refresh token"},
	CodeRefreshInvalid:     {en: "invalid refresh token", he: "refresh token לא תקין"},
	CodePasswordMismatch:   {en: "current password is incorrect", he: "הסיסמה הנוכחית שגויה"},
	CodeRegistrationFailed: {en: "failed to create the user", he: "שגיאה ביצירת המשתמש"},

	CodeProductNotFound:   {en: "product not found", he: "מוצר לא נמצא"},
	CodeProductExists:     {en: "a product with these details already exists", he: "מוצר עם פרטים אלו כבר קיים במערכת"},
	CodeProductHasLoans:   {en: "cannot delete a product with loaned instances", he: "לא ניתן למחוק מוצר עם פריטים מושאלים"},
	CodeProductSaveFailed: {en: "failed to save the product", he: "שגיאה בשמירת המוצר"},

	CodeInstanceNotFound:      {en: "product instance not found", he: "פריט המוצר לא נמצא"},
	CodeInstanceBarcodeExists: {en: "barcode already exists", he: "ברקוד כבר קיים במערכת"},
	CodeInstanceUnavailable:   {en: "product instance is not available for loan", he: "פריט המוצר אינו זמין להשאלה"},
	CodeInstanceOnLoan:        {en: "product instance is already on loan", he: "פריט המוצר כבר מושאל"},
	CodeInstanceSaveFailed:    {en: "failed to save the product instance", he: "שגיאה בשמירת פריט המוצר"},

	CodeLoanNotFound:    {en: "loan not found", he: "השאלה לא נמצאה"},
	CodeLoanNotOpen:     {en: "loan already returned or not active", he: "השאלה כבר הוחזרה או אינה פעילה"},
	CodeLoanLostNotOpen: {en: "only active or overdue loans can be marked as lost", he: "רק השאלות פעילות או באיחור יכולות להיות מסומנות כאבודות"},
	CodeLoanCeiling:     {en: "user cannot hold more than 3 active loans", he: "המשתמש לא יכול לקבל יותר מ-3 השאלות פעילות"},
	CodeLoanSaveFailed:  {en: "failed to save the loan", he: "שגיאה בשמירת ההשאלה"},

	CodeVolunteerNotFound:    {en: "volunteer not found or inactive", he: "המתנדב לא נמצא או אינו פעיל"},
	CodeActivityNotFound:     {en: "activity not found", he: "הפעילות לא נמצאה"},
	CodeActivityHoursRange:   {en: "hours must be between 0.1 and 24", he: "מספר השעות חייב להיות בין 0.1 ל-24"},
	CodeActivityFutureDate:   {en: "cannot log an activity for a future date", he: "לא ניתן לרשום פעילות לתאריך עתידי"},
	CodeActivitySelfOnly:     {en: "volunteers can only log activities for themselves", he: "מתנדב יכול לרשום רק התנדבויות עבור עצמו"},
	CodeActivityViewSelfOnly: {en: "you are not allowed to view this activity", he: "אין לך הרשאה לצפות בפעילות זו"},
	CodeActivitySaveFailed:   {en: "failed to save the activity", he: "שגיאה בשמירת הפעילות"},

	CodeAuditNotFound: {en: "audit entry not found", he: "רשומת הביקורת לא נמצאה"},

	CodeInvalidRequest: {en: "invalid request", he: "בקשה לא תקינה"},
	CodeInternal:       {en: "unexpected error", he: "שגיאה בלתי צפויה"},
}

// Message resolves a catalog code to its localized text.
// Unknown codes return the code itself so nothing is ever silently lost.
func Message(code, lang string) string {
	m, ok := catalog[code]
	if !ok {
		return code
	}

	if lang == "he" && m.he != "" {
		return m.he
	}

	return m.en
}
