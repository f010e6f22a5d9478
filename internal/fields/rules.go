package fields

import "strings"

// copula matches the optional verb or colon between a keyword and its value.
const copula = `\s*(?:是|为)?[是为:：]?\s*`

// Value tokens shared by the anchored patterns and the label-anchored pass.
const (
	phoneToken = `(?:\+?86[- ]?)?1[3-9]\d[- ]?\d{4}[- ]?\d{4}(?!\d)|(?:0\d{2,3}[- ]?)?\d{7,8}(?!\d)`
	emailToken = `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`
	// 18 digit resident identity number: region, birth date, sequence, checksum.
	idCardToken   = `[1-9]\d{5}(?:18|19|20)\d{2}(?:0[1-9]|1[0-2])(?:0[1-9]|[12]\d|3[01])\d{3}[0-9Xx](?![0-9A-Za-z])`
	zipcodeToken  = `\d{5,6}(?:-\d{4})?(?!\d)`
	birthdayToken = `\d{4}\s*[-/.年]\s*\d{1,2}\s*[-/.月]\s*\d{1,2}\s*日?`
	genderToken   = `(?:男|女|female|male|woman|man)(?![a-z])`
	// Up to three Latin words, stopping before another field keyword.
	latinNameToken = `[a-z][a-z.'-]*(?:[ ](?!(?:phone|mobile|tel|email|e-mail|mail|address|company|title|gender|sex)\b)[a-z][a-z.'-]*){0,2}`
)

// FieldTypeRule describes how one canonical type is recognised in labels
// and how a value of that type is found in prose.
type FieldTypeRule struct {
	Type FieldType
	// Synonyms are regular expression fragments matched case-insensitively
	// against label text.
	Synonyms []string
	// ValuePatterns are keyword-anchored patterns; group 1 holds the value.
	ValuePatterns []string
	// ShapePattern matches a bare value with no keyword in front of it.
	ShapePattern string
	// ValueToken replaces the generic value token when an on-page label of
	// this type is used as the anchor.
	ValueToken  string
	Description string
}

// word keeps a short Latin fragment from matching inside longer words such
// as "Hotel" or "Stateless". A capital letter after it still ends the word,
// so camelCase attribute names like "telNo" match.
func word(fragment string) string {
	return `(?<![A-Za-z])` + fragment + `(?!(?-i:[a-z]))`
}

func anchored(keywords []string, value string) string {
	return `(?:` + strings.Join(keywords, "|") + `)` + copula + `(` + value + `)`
}

// DefaultRules returns the built-in bilingual rule table in priority order.
func DefaultRules() []FieldTypeRule {
	return []FieldTypeRule{
		{
			Type:     FieldTypeName,
			Synonyms: []string{`姓名`, `名字`, `联系人`, `full\s*name`, `name`, `用户名`, `用户`},
			ValuePatterns: []string{
				anchored([]string{`我叫`, `我是`, `姓名`, `名字`, `联系人`}, `[^\s,，。.、；;!！?？)(）（\d:：]{2,10}`),
				anchored([]string{`full\s*name`, word(`name`)}, latinNameToken),
			},
			Description: "Person name",
		},
		{
			Type:     FieldTypePhone,
			Synonyms: []string{`手机`, `电话`, `联系方式`, `phone`, `mobile`, word(`tel`), `telephone`},
			ValuePatterns: []string{
				`(?:联系电话|手机号码|手机号|手机|电话|联系方式|telephone|mobile|phone|` + word(`tel`) + `)(?:\s*(?:number|no\.?|#))?` +
					copula + `(` + phoneToken + `)`,
			},
			ShapePattern: `(?<![\d+])(?:\+?86[- ]?)?1[3-9]\d[- ]?\d{4}[- ]?\d{4}(?!\d)`,
			ValueToken:   phoneToken,
			Description:  "Mobile or landline number",
		},
		{
			Type:     FieldTypeEmail,
			Synonyms: []string{`邮箱`, `电子邮件`, `email`, word(`mail`), `e-mail`},
			ValuePatterns: []string{
				anchored([]string{`电子邮箱`, `电子邮件`, `邮箱`, `邮件`, `e-mail`, `email`, word(`mail`)}, emailToken),
			},
			ShapePattern: emailToken,
			ValueToken:   emailToken,
			Description:  "Email address",
		},
		{
			Type:     FieldTypeAddress,
			Synonyms: []string{`地址`, `address`, `详细地址`, `收货地址`},
			ValuePatterns: []string{
				anchored([]string{`收货地址`, `家庭住址`, `详细地址`, `地址`, `住址`, `address`}, `(?![^，。,.\n]*@)[^，。,.\n]{5,50}`),
			},
			Description: "Street or postal address",
		},
		{
			Type:     FieldTypeCity,
			Synonyms: []string{`城市`, `city`},
			ValuePatterns: []string{
				anchored([]string{`所在城市`, `城市`, `city`}, `[^\s，。,.\n、；;]{2,20}`),
			},
			Description: "City",
		},
		{
			Type:     FieldTypeProvince,
			Synonyms: []string{`省份`, `省`, `province`, word(`state`)},
			ValuePatterns: []string{
				anchored([]string{`所在省份`, `省份`, `province`, word(`state`)}, `[^\s，。,.\n、；;]{2,20}`),
			},
			Description: "Province or state",
		},
		{
			Type:     FieldTypeCountry,
			Synonyms: []string{`国家`, `country`},
			ValuePatterns: []string{
				anchored([]string{`国家`, `国籍`, `country`, `nationality`}, `[^\s，。,.\n、；;]{2,30}`),
			},
			Description: "Country",
		},
		{
			Type:     FieldTypeZipcode,
			Synonyms: []string{`邮编`, word(`zip`), `postal`, `postcode`, `zip\s*code`, `postal\s*code`},
			ValuePatterns: []string{
				anchored([]string{`邮政编码`, `邮编`, `zip\s*code`, `postal\s*code`, `postcode`, word(`zip`), `postal`}, zipcodeToken),
			},
			ValueToken:  zipcodeToken,
			Description: "Postal code",
		},
		{
			Type:     FieldTypeCompany,
			Synonyms: []string{`公司`, `单位`, `company`, `organization`},
			ValuePatterns: []string{
				anchored([]string{`公司名称`, `工作单位`, `公司`, `单位`, `企业`, `company`, `organization`, `employer`}, `[^，。,.\n]{2,30}`),
			},
			Description: "Company or organisation",
		},
		{
			Type:     FieldTypeTitle,
			Synonyms: []string{`职位`, `title`, word(`job`), `position`},
			ValuePatterns: []string{
				anchored([]string{`职位`, `职务`, `职称`, `job\s*title`, `title`, `position`, word(`job`)}, `[^，。,.\n]{2,20}`),
			},
			Description: "Job title",
		},
		{
			Type:     FieldTypeBirthday,
			Synonyms: []string{`生日`, `出生日期`, `birthday`, `birth`, `date of birth`},
			ValuePatterns: []string{
				anchored([]string{`出生日期`, `出生年月`, `生日`, `date\s+of\s+birth`, `birthday`, `birth\s*date`, `dob`}, birthdayToken),
			},
			ValueToken:  birthdayToken,
			Description: "Date of birth",
		},
		{
			Type:     FieldTypeGender,
			Synonyms: []string{`性别`, `gender`, word(`sex`)},
			ValuePatterns: []string{
				anchored([]string{`性别`, `gender`, word(`sex`)}, genderToken),
			},
			ValueToken:  genderToken,
			Description: "Gender, normalised to 男 or 女",
		},
		{
			Type:     FieldTypeIDCard,
			Synonyms: []string{`证件`, `身份证`, `idcard`, `id card`, `identification`},
			ValuePatterns: []string{
				anchored([]string{
					`身份证号码`, `身份证号`, `身份证`, `证件号码`, `证件号`,
					`id\s*card(?:\s*(?:no\.?|number))?`, `identification(?:\s*number)?`,
				}, idCardToken),
			},
			ShapePattern: `(?<![0-9A-Za-z])` + idCardToken,
			ValueToken:   idCardToken,
			Description:  "Resident identity card number",
		},
	}
}
