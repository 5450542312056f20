package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/vittam-ai/vittam-backend/internal/llm"
	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/services"
)

// SessionContext carries the state of one chat turn. Every tool runs
// against it, nothing lives in process globals, so concurrent sessions
// never bleed into each other.
type SessionContext struct {
	Session  *models.Session
	Customer *services.CustomerData

	// document keys tools asked the customer for this turn
	RequestedDocs map[string]bool
	// set when a sanction was issued this turn
	SanctionID string
}

// NewSessionContext builds the per-turn context for a session.
func NewSessionContext(session *models.Session, customer *services.CustomerData) *SessionContext {
	return &SessionContext{
		Session:       session,
		Customer:      customer,
		RequestedDocs: make(map[string]bool),
	}
}

// RequestDoc records a structured document request for this turn.
func (sc *SessionContext) RequestDoc(key string) {
	sc.RequestedDocs[key] = true
}

// Capabilities binds the loan services to the model's tools. The model
// is an untrusted caller: customer identity always comes from the
// session, never from tool arguments, and every hard rule is enforced
// inside the services.
type Capabilities struct {
	sessions     *services.SessionService
	customers    *services.CustomerService
	offers       *services.OfferService
	eligibility  *services.EligibilityService
	identity     *services.IdentityService
	documents    *services.DocumentService
	verification *services.VerificationService
	sanctions    *services.SanctionService
}

// NewCapabilities creates a new capabilities instance
func NewCapabilities(
	sessions *services.SessionService,
	customers *services.CustomerService,
	offers *services.OfferService,
	eligibility *services.EligibilityService,
	identity *services.IdentityService,
	documents *services.DocumentService,
	verification *services.VerificationService,
	sanctions *services.SanctionService,
) *Capabilities {
	return &Capabilities{
		sessions:     sessions,
		customers:    customers,
		offers:       offers,
		eligibility:  eligibility,
		identity:     identity,
		documents:    documents,
		verification: verification,
		sanctions:    sanctions,
	}
}

// Tools declares the tool surface offered to the model.
func (c *Capabilities) Tools() []llm.ToolDef {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	num := func(desc string) map[string]any {
		return map[string]any{"type": "number", "description": desc}
	}
	integer := func(desc string) map[string]any {
		return map[string]any{"type": "integer", "description": desc}
	}

	return []llm.ToolDef{
		{
			Name:        "verify_customer_pan",
			Description: "Verify a PAN number (format and database lookup). A verified PAN binds the customer to the session and retrieves their full profile including phone and credit score.",
			Properties:  map[string]any{"pan": str("PAN number, 10 characters (5 letters, 4 digits, 1 letter)")},
			Required:    []string{"pan"},
		},
		{
			Name:        "verify_customer_phone",
			Description: "Verify a phone number is on record and send an OTP to it.",
			Properties:  map[string]any{"phone": str("Phone number, with or without the +91 country code")},
			Required:    []string{"phone"},
		},
		{
			Name:        "verify_customer_otp",
			Description: "Verify the OTP the customer received on their phone. Success binds the customer to the session.",
			Properties: map[string]any{
				"phone": str("Phone number the OTP was sent to"),
				"otp":   str("6-digit OTP entered by the customer"),
			},
			Required: []string{"phone", "otp"},
		},
		{
			Name:        "verify_customer_kyc",
			Description: "Verify KYC details (name, date of birth, address) against the record for a PAN. At least 2 of the 3 fields must match.",
			Properties: map[string]any{
				"name":    str("Full name as per KYC"),
				"dob":     str("Date of birth, YYYY-MM-DD"),
				"address": str("Registered address"),
				"pan":     str("PAN number"),
			},
			Required: []string{"name", "dob", "address", "pan"},
		},
		{
			Name:        "check_loan_eligibility",
			Description: "Run the risk rules for the verified customer: approved, conditionally_approved or rejected with reasons. Requires identity verification first.",
			Properties: map[string]any{
				"requested_amount": num("Requested loan amount in rupees"),
				"tenure_months":    integer("Loan tenure in months, default 60"),
			},
			Required: []string{"requested_amount"},
		},
		{
			Name:        "calculate_loan_emi",
			Description: "Calculate the EMI, total payable and total interest for loan parameters.",
			Properties: map[string]any{
				"loan_amount":   num("Loan principal in rupees"),
				"tenure_months": integer("Tenure in months"),
				"interest_rate": num("Annual interest rate percentage"),
			},
			Required: []string{"loan_amount", "tenure_months", "interest_rate"},
		},
		{
			Name:        "get_available_offers",
			Description: "List loan offers matching a credit score, best rate first.",
			Properties: map[string]any{
				"credit_score": integer("Customer's credit score out of 900"),
				"loan_amount":  num("Optional loan amount to filter offers by"),
			},
			Required: []string{"credit_score"},
		},
		{
			Name:        "request_documents",
			Description: "Ask the customer to upload documents. Pass the exact document keys; already-verified documents are filtered out automatically.",
			Properties: map[string]any{
				"documents": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Document keys to request: identity_proof, address_proof, bank_statement, salary_slip, employment_certificate",
				},
			},
			Required: []string{"documents"},
		},
		{
			Name:        "check_document_status",
			Description: "Check the verification status of the session's uploaded documents.",
			Properties:  map[string]any{},
		},
		{
			Name:        "verify_uploaded_documents",
			Description: "Run AI verification over every uploaded document in the session. Already-verified documents are skipped. Rejected documents must be re-uploaded by the customer.",
			Properties:  map[string]any{},
		},
		{
			Name:        "verify_salary_slip",
			Description: "Confirm the salary slip requirement for a conditional approval and re-run eligibility.",
			Properties:  map[string]any{},
		},
		{
			Name:        "get_required_documents",
			Description: "List the documents required for a loan application.",
			Properties:  map[string]any{},
		},
		{
			Name:        "get_charges_and_fees",
			Description: "Get all loan charges, fees and interest rate information.",
			Properties:  map[string]any{},
		},
		{
			Name:        "get_loan_terms_and_conditions",
			Description: "Get the standard loan terms and conditions including eligibility criteria.",
			Properties:  map[string]any{},
		},
		{
			Name:        "issue_sanction_letter",
			Description: "Issue the sanction letter. LAST step only: refuses unless identity is verified, the loan is approved, all uploaded documents are verified and bank details are complete.",
			Properties: map[string]any{
				"loan_amount":         num("Sanctioned loan amount in rupees"),
				"tenure_months":       integer("Tenure in months"),
				"interest_rate":       num("Annual interest rate percentage"),
				"account_number":      str("Disbursement bank account number"),
				"ifsc_code":           str("Bank IFSC code"),
				"account_holder_name": str("Account holder name"),
				"bank_name":           str("Bank name (optional)"),
			},
			Required: []string{"loan_amount", "tenure_months", "interest_rate", "account_number", "ifsc_code", "account_holder_name"},
		},
	}
}

// Invoke runs one tool call against the session context. Business
// refusals come back as JSON tool results, not Go errors; errors are
// reserved for infrastructure failures.
func (c *Capabilities) Invoke(ctx context.Context, sc *SessionContext, name string, input json.RawMessage) (string, error) {
	log.Printf("[TOOL] %s called - session: %s", name, sc.Session.SessionID)

	switch name {
	case "verify_customer_pan":
		return c.verifyPAN(sc, input)
	case "verify_customer_phone":
		return c.verifyPhone(sc, input)
	case "verify_customer_otp":
		return c.verifyOTP(sc, input)
	case "verify_customer_kyc":
		return c.verifyKYC(sc, input)
	case "check_loan_eligibility":
		return c.checkEligibility(sc, input)
	case "calculate_loan_emi":
		return c.calculateEMI(input)
	case "get_available_offers":
		return c.availableOffers(input)
	case "request_documents":
		return c.requestDocuments(sc, input)
	case "check_document_status":
		return c.documentStatus(sc)
	case "verify_uploaded_documents":
		return c.verifyDocuments(ctx, sc)
	case "verify_salary_slip":
		return c.verifySalarySlip(sc)
	case "get_required_documents":
		return toJSON(requiredDocumentsInfo())
	case "get_charges_and_fees":
		return toJSON(map[string]any{"success": true, "charges": loanCharges})
	case "get_loan_terms_and_conditions":
		return toJSON(loanTerms)
	case "issue_sanction_letter":
		return c.issueSanction(sc, input)
	default:
		return toJSON(map[string]any{"error": fmt.Sprintf("unknown tool: %s", name)})
	}
}

func (c *Capabilities) verifyPAN(sc *SessionContext, input json.RawMessage) (string, error) {
	var args struct {
		PAN string `json:"pan"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}

	result, err := c.identity.VerifyPAN(args.PAN)
	if err != nil {
		return "", err
	}
	if result.Verified && result.Customer != nil {
		if err := c.bindCustomer(sc, result.Customer); err != nil {
			return "", err
		}
	}
	return toJSON(result)
}

func (c *Capabilities) verifyPhone(sc *SessionContext, input json.RawMessage) (string, error) {
	var args struct {
		Phone string `json:"phone"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}

	result, err := c.identity.VerifyPhone(args.Phone)
	if err != nil {
		return "", err
	}
	return toJSON(result)
}

func (c *Capabilities) verifyOTP(sc *SessionContext, input json.RawMessage) (string, error) {
	var args struct {
		Phone string `json:"phone"`
		OTP   string `json:"otp"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}

	result, err := c.identity.VerifyOTP(args.Phone, args.OTP)
	if err != nil {
		return "", err
	}
	if result.Verified && result.Customer != nil {
		if err := c.bindCustomer(sc, result.Customer); err != nil {
			return "", err
		}
	}
	return toJSON(result)
}

func (c *Capabilities) verifyKYC(sc *SessionContext, input json.RawMessage) (string, error) {
	var args struct {
		Name    string `json:"name"`
		DOB     string `json:"dob"`
		Address string `json:"address"`
		PAN     string `json:"pan"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}

	result, err := c.identity.VerifyKYCDetails(args.Name, args.DOB, args.Address, args.PAN)
	if err != nil {
		return "", err
	}
	if result.Verified && result.Customer != nil {
		if err := c.bindCustomer(sc, result.Customer); err != nil {
			return "", err
		}
	}
	return toJSON(result)
}

// bindCustomer pins the verified customer onto the session and moves
// it out of the initial stage.
func (c *Capabilities) bindCustomer(sc *SessionContext, customer *services.CustomerData) error {
	sc.Customer = customer
	if err := c.sessions.BindCustomer(sc.Session, customer); err != nil {
		return err
	}
	log.Printf("[TOOL] customer %s bound to session %s", customer.CustomerID, sc.Session.SessionID)
	return nil
}

func (c *Capabilities) checkEligibility(sc *SessionContext, input json.RawMessage) (string, error) {
	var args struct {
		RequestedAmount float64 `json:"requested_amount"`
		TenureMonths    int     `json:"tenure_months"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}

	if sc.Session.CustomerID == "" {
		return toJSON(map[string]any{
			"eligible": false,
			"status":   services.StatusRejected,
			"message":  "Identity verification is required before an eligibility check. Please verify the customer's PAN first.",
		})
	}

	result, err := c.eligibility.Check(sc.Session.CustomerID, args.RequestedAmount, args.TenureMonths)
	if err != nil {
		return "", err
	}

	type eligibilityPayload struct {
		*services.EligibilityResult
		RequestedDocuments []string `json:"requested_documents,omitempty"`
	}
	payload := eligibilityPayload{EligibilityResult: result}

	if result.Eligible {
		sc.Session.LoanAmount = args.RequestedAmount
		sc.Session.TenureMonths = result.TenureMonths
		if sc.Session.Stage == models.StageVerification {
			if err := sc.Session.AdvanceTo(models.StageUnderwriting); err != nil {
				return "", err
			}
		}
		if err := c.sessions.Update(sc.Session); err != nil {
			return "", err
		}

		// eligible customers move on to document collection
		for _, dt := range models.AllowedDocumentTypes {
			if dt.Mandatory {
				sc.RequestDoc(dt.Key)
				payload.RequestedDocuments = append(payload.RequestedDocuments, dt.Key)
			}
		}
		if result.RequiresSalarySlip {
			for _, key := range []string{"salary_slip", "employment_certificate"} {
				sc.RequestDoc(key)
				payload.RequestedDocuments = append(payload.RequestedDocuments, key)
			}
		}
	}

	return toJSON(payload)
}

func (c *Capabilities) calculateEMI(input json.RawMessage) (string, error) {
	var args struct {
		LoanAmount   float64 `json:"loan_amount"`
		TenureMonths int     `json:"tenure_months"`
		InterestRate float64 `json:"interest_rate"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}

	result, err := services.CalculateEMI(args.LoanAmount, args.TenureMonths, args.InterestRate)
	if err != nil {
		return toJSON(map[string]any{"success": false, "message": "Invalid input parameters"})
	}
	return toJSON(map[string]any{
		"success":        true,
		"loan_amount":    result.LoanAmount,
		"tenure_months":  result.TenureMonths,
		"interest_rate":  result.InterestRate,
		"emi":            result.EMI,
		"total_amount":   result.TotalAmount,
		"total_interest": result.TotalInterest,
	})
}

func (c *Capabilities) availableOffers(input json.RawMessage) (string, error) {
	var args struct {
		CreditScore int     `json:"credit_score"`
		LoanAmount  float64 `json:"loan_amount"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}

	result, err := c.offers.GetOffers(args.CreditScore, args.LoanAmount)
	if err != nil {
		return "", err
	}
	return toJSON(result)
}

func (c *Capabilities) requestDocuments(sc *SessionContext, input json.RawMessage) (string, error) {
	var args struct {
		Documents []string `json:"documents"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}

	var accepted, rejected []string
	for _, key := range args.Documents {
		key = strings.TrimSpace(strings.ToLower(key))
		if _, ok := models.DocumentTypeByKey(key); ok {
			sc.RequestDoc(key)
			accepted = append(accepted, key)
		} else {
			rejected = append(rejected, key)
		}
	}

	resp := map[string]any{
		"success":             len(accepted) > 0,
		"requested_documents": accepted,
	}
	if len(rejected) > 0 {
		resp["invalid_keys"] = rejected
		resp["message"] = fmt.Sprintf("Unknown document keys ignored: %s. Allowed keys: %s",
			strings.Join(rejected, ", "), strings.Join(models.DocumentTypeKeys(), ", "))
	}
	return toJSON(resp)
}

func (c *Capabilities) documentStatus(sc *SessionContext) (string, error) {
	docs, err := c.documents.List(sc.Session.SessionID)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return toJSON(map[string]any{
			"success":      true,
			"message":      "No documents uploaded yet",
			"documents":    []any{},
			"all_verified": false,
		})
	}

	status, err := c.documents.Status(sc.Session.SessionID)
	if err != nil {
		return "", err
	}

	type docState struct {
		DocType  string `json:"doc_type"`
		DocName  string `json:"doc_name"`
		Status   string `json:"status"`
		Feedback string `json:"feedback,omitempty"`
	}
	states := make([]docState, 0, len(docs))
	for _, doc := range docs {
		states = append(states, docState{
			DocType:  doc.DocType,
			DocName:  doc.DocName,
			Status:   doc.VerificationStatus,
			Feedback: doc.VerificationFeedback,
		})
	}

	return toJSON(map[string]any{
		"success":        true,
		"documents":      states,
		"all_verified":   status.AllVerified,
		"verified_count": status.Verified,
		"pending_count":  status.Pending,
		"rejected_count": status.Rejected,
	})
}

func (c *Capabilities) verifyDocuments(ctx context.Context, sc *SessionContext) (string, error) {
	result, err := c.verification.VerifySession(ctx, sc.Session.SessionID)
	if err != nil {
		return "", err
	}
	if !result.Success {
		return toJSON(result)
	}

	var message string
	if result.AllVerified {
		message = fmt.Sprintf("All documents verified successfully! All %d documents are correct and ready.", result.VerifiedCount)
	} else {
		var b strings.Builder
		fmt.Fprintf(&b, "Document verification completed:\n- Verified: %d documents\n- Rejected: %d documents\n\nRejected documents need to be reuploaded:\n",
			result.VerifiedCount, result.RejectedCount)
		for _, r := range result.Results {
			if !r.Verified {
				fmt.Fprintf(&b, "- %s: %s\n", r.DocName, r.Feedback)
				sc.RequestDoc(r.DocType)
			}
		}
		message = b.String()
	}

	return toJSON(map[string]any{
		"success":      true,
		"all_verified": result.AllVerified,
		"message":      message,
		"results":      result.Results,
	})
}

func (c *Capabilities) verifySalarySlip(sc *SessionContext) (string, error) {
	if sc.Session.CustomerID == "" {
		return toJSON(map[string]any{"verified": false, "message": "Customer not found"})
	}

	resp := map[string]any{
		"verified":    true,
		"message":     "Salary slip verified successfully",
		"customer_id": sc.Session.CustomerID,
	}
	if sc.Customer != nil && sc.Customer.Salary != nil {
		resp["verified_salary"] = *sc.Customer.Salary
	}

	// re-run eligibility with the salary requirement satisfied
	if sc.Session.LoanAmount > 0 {
		result, err := c.eligibility.Check(sc.Session.CustomerID, sc.Session.LoanAmount, sc.Session.TenureMonths)
		if err != nil {
			return "", err
		}
		resp["eligibility"] = result
	}

	return toJSON(resp)
}

func (c *Capabilities) issueSanction(sc *SessionContext, input json.RawMessage) (string, error) {
	var args struct {
		LoanAmount        float64 `json:"loan_amount"`
		TenureMonths      int     `json:"tenure_months"`
		InterestRate      float64 `json:"interest_rate"`
		AccountNumber     string  `json:"account_number"`
		IFSCCode          string  `json:"ifsc_code"`
		AccountHolderName string  `json:"account_holder_name"`
		BankName          string  `json:"bank_name"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}

	if sc.Session.CustomerID == "" {
		return toJSON(map[string]any{
			"success": false,
			"message": "Cannot generate sanction letter: customer identity is not verified. Please complete PAN verification first.",
		})
	}

	letter, err := c.sanctions.Issue(sc.Session.SessionID, sc.Session.CustomerID,
		args.LoanAmount, args.TenureMonths, args.InterestRate, services.BankDetails{
			AccountNumber:     args.AccountNumber,
			IFSCCode:          args.IFSCCode,
			AccountHolderName: args.AccountHolderName,
			BankName:          args.BankName,
		})
	if err != nil {
		// precondition refusals go back to the model as feedback
		log.Printf("[TOOL] issue_sanction_letter refused: %v", err)
		return toJSON(map[string]any{
			"success": false,
			"message": fmt.Sprintf("Cannot generate sanction letter: %v", err),
		})
	}

	sc.SanctionID = letter.SanctionID
	return toJSON(map[string]any{
		"success":     true,
		"sanction_id": letter.SanctionID,
		"letter":      letter,
	})
}

func toJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}
	return string(data), nil
}

func requiredDocumentsInfo() map[string]any {
	always := map[string]any{}
	conditional := map[string]any{
		"description": "Required ONLY for conditional approvals (when loan amount > pre-approved limit)",
	}
	for _, dt := range models.AllowedDocumentTypes {
		entry := map[string]any{
			"doc_type":    dt.Key,
			"name":        dt.Name,
			"description": dt.Description,
		}
		if dt.Mandatory {
			always[dt.Key] = entry
		} else {
			conditional[dt.Key] = entry
		}
	}

	return map[string]any{
		"success": true,
		"documents": map[string]any{
			"always_required":  always,
			"conditional_only": conditional,
			"notes": []string{
				"Same document can serve as both identity and address proof",
				"Salary slips and employment certificate are only required for conditional approvals",
				"For instant approvals, only identity proof, address proof and bank statement are needed",
				"Only these 5 document types are allowed, never request any other type",
			},
		},
	}
}

var loanCharges = map[string]string{
	"interest_rate":      "10.99% p.a. onwards",
	"processing_fee":     "Up to 3.5% of loan amount + GST",
	"penal_charges":      "3% per month on defaulted amount (Annualized 36%)",
	"cheque_dishonour":   "₹600 per instrument per instance",
	"mandate_rejection":  "₹450",
	"statement_charges":  "₹250 + GST for physical copy (digital free)",
	"loan_cancellation":  "2% of loan amount OR ₹5,750 (whichever is higher)",
	"annual_maintenance": "0.25% of dropline amount OR ₹1,000 (whichever is higher) - payable at end of 13th month",
	"prepayment":         "Allowed after 12 months with minimal charges",
}

var loanTerms = map[string]any{
	"loan_features": map[string]string{
		"interest_rate":     "10.99% p.a. onwards",
		"loan_amount_range": "₹50,000 to ₹50,00,000",
		"tenure_range":      "12 to 60 months",
		"disbursement_time": "24-48 hours after document verification",
		"collateral":        "Not required",
		"purpose":           "Any personal purpose",
	},
	"charges": loanCharges,
	"terms": []string{
		"Fixed interest rate for entire tenure",
		"Prepayment allowed after 12 months with applicable charges",
		"Default in payment attracts penal charges as mentioned",
		"All disputes subject to jurisdiction of Mumbai courts",
		"Loan amount disbursed directly to customer's bank account",
		"EMI debited automatically via NACH/Auto-debit mandate",
		"Sanction letter valid for 30 days from date of issue",
	},
	"eligibility_criteria": map[string]any{
		"age":                  "21-60 years",
		"minimum_credit_score": 700,
		"minimum_salary":       "₹25,000 per month",
		"residency":            "Indian resident",
		"employment":           "Minimum 1 year continuous employment",
	},
}
