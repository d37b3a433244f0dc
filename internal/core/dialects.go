package core

func init() {
	registerSalesforce()
	registerHubSpot()
	registerPipedrive()
}

func registerSalesforce() {
	RegisterDialect(Dialect{
		Name:       "salesforce",
		Label:      "Salesforce",
		Priority:   10,
		Indicators: []string{"firstname", "lastname", "mailingstreet", "mailingcity", "createddate"},
		Fields: map[string]string{
			"firstname":         "first_name",
			"lastname":          "last_name",
			"email":             "email",
			"phone":             "phone",
			"mobilephone":       "mobile_phone",
			"mailingstreet":     "address_street",
			"mailingcity":       "address_city",
			"mailingstate":      "address_state",
			"mailingpostalcode": "address_postal_code",
			"mailingcountry":    "address_country",
			"company":           "company_name",
			"title":             "job_title",
			"lead_source":       "lead_source",
			"status":            "status",
			"createddate":       "created_date",
			"lastmodifieddate":  "last_modified_date",
		},
	})
}

func registerHubSpot() {
	RegisterDialect(Dialect{
		Name:       "hubspot",
		Label:      "HubSpot",
		Priority:   20,
		Indicators: []string{"firstname", "lastname", "lifecyclestage", "createdate", "hs_lastmodifieddate"},
		Fields: map[string]string{
			"firstname":           "first_name",
			"lastname":            "last_name",
			"email":               "email",
			"phone":               "phone",
			"mobilephone":         "mobile_phone",
			"address":             "address_street",
			"city":                "address_city",
			"state":               "address_state",
			"zip":                 "address_postal_code",
			"country":             "address_country",
			"company":             "company_name",
			"jobtitle":            "job_title",
			"leadsource":          "lead_source",
			"lifecyclestage":      "status",
			"createdate":          "created_date",
			"hs_lastmodifieddate": "last_modified_date",
		},
	})
}

func registerPipedrive() {
	RegisterDialect(Dialect{
		Name:       "pipedrive",
		Label:      "Pipedrive",
		Priority:   30,
		Indicators: []string{"org_name", "owner_name", "add_time", "update_time"},
		Fields: map[string]string{
			"first_name":  "first_name",
			"last_name":   "last_name",
			"email":       "email",
			"phone":       "phone",
			"mobile":      "mobile_phone",
			"org_name":    "company_name",
			"owner_name":  "owner_name",
			"add_time":    "created_date",
			"update_time": "last_modified_date",
		},
	})
}
