package types

// JobRole is one of the fixed role categories questions are tailored to
type JobRole string

const (
	RoleSoftware    JobRole = "IT/소프트웨어 개발"
	RoleSales       JobRole = "영업/영업관리"
	RoleMarketing   JobRole = "마케팅"
	RoleResearch    JobRole = "연구개발(R&D)"
	RoleStrategy    JobRole = "기획/전략"
	RoleDataScience JobRole = "데이터 분석/사이언티스트"
	RoleHR          JobRole = "인사(HR)"
	RoleFinance     JobRole = "재무/회계"
	RoleProduction  JobRole = "생산/품질관리"
	RoleDesign      JobRole = "디자인(UX/UI, 제품)"
)

// JobRoles lists the roles in display order
var JobRoles = []JobRole{
	RoleSoftware,
	RoleSales,
	RoleMarketing,
	RoleResearch,
	RoleStrategy,
	RoleDataScience,
	RoleHR,
	RoleFinance,
	RoleProduction,
	RoleDesign,
}

func ValidJobRole(r JobRole) bool {
	for _, role := range JobRoles {
		if role == r {
			return true
		}
	}
	return false
}
