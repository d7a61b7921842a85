package constants

// ApplicantType is the legal constitution of the borrowing entity.
type ApplicantType string

const (
	ApplicantIndividual     ApplicantType = "Individual"
	ApplicantProprietorship ApplicantType = "Proprietorship"
	ApplicantPartnership    ApplicantType = "Partnership"
	ApplicantLLP            ApplicantType = "LLP"
	ApplicantPrivateLimited ApplicantType = "Private Limited"
	ApplicantPublicLimited  ApplicantType = "Public Limited"
)

func (a ApplicantType) IsIndividual() bool { return a == ApplicantIndividual }

// IsCompany is true for incorporated companies that file MoA/AoA.
func (a ApplicantType) IsCompany() bool {
	return a == ApplicantPrivateLimited || a == ApplicantPublicLimited
}
