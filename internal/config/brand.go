package config

// Brand holds the site-wide identity values shared by the relay and the
// generated pages. It is a plain value: copies are independent.
type Brand struct {
	Name         string `yaml:"name"`
	Tagline      string `yaml:"tagline"`
	Description  string `yaml:"description"`
	ContactEmail string `yaml:"contact_email"`
	Phone        string `yaml:"phone"`
	Location     string `yaml:"location"`
	Hours        string `yaml:"hours"`
}

// DefaultBrand returns the Click IT brand.
func DefaultBrand() Brand {
	return Brand{
		Name:         "Click IT",
		Tagline:      "Urban life, simplified. On tap.",
		Description:  "Essentials delivery and small-item movement across the city",
		ContactEmail: "hello@clickituk.co.uk",
		Phone:        "+44 20 1234 5678",
		Location:     "United Kingdom",
		Hours:        "Mon-Fri: 9 AM - 6 PM GMT",
	}
}

func (b Brand) withDefaults(def Brand) Brand {
	if b.Name == "" {
		b.Name = def.Name
	}
	if b.Tagline == "" {
		b.Tagline = def.Tagline
	}
	if b.Description == "" {
		b.Description = def.Description
	}
	if b.ContactEmail == "" {
		b.ContactEmail = def.ContactEmail
	}
	if b.Phone == "" {
		b.Phone = def.Phone
	}
	if b.Location == "" {
		b.Location = def.Location
	}
	if b.Hours == "" {
		b.Hours = def.Hours
	}
	return b
}
