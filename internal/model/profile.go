package model

// Profile is a professional profile surfaced by the search backend mid-stream.
type Profile struct {
	UserID      string
	Name        string
	Title       string
	Company     string
	Location    string
	Email       string
	LinkedIn    string
	PfpURL      string
	Summary     string
	Skills      []string
	Experiences []Experience
	Educations  []Education
}

// Experience is one professional position on a profile.
type Experience struct {
	Title   string
	Company string
	Start   string
	End     string
}

// Education is one education entry on a profile.
type Education struct {
	School string
	Degree string
	Field  string
}

// ProfileWire is the profile shape on the wire.
type ProfileWire struct {
	UserID      string           `json:"user_id"`
	Name        string           `json:"name"`
	Title       string           `json:"title"`
	Company     string           `json:"company"`
	Location    string           `json:"location"`
	Email       string           `json:"email"`
	LinkedIn    string           `json:"linkedin"`
	PfpURL      string           `json:"pfp_url"`
	Summary     string           `json:"summary"`
	Skills      []string         `json:"skills"`
	Experiences []ExperienceWire `json:"experiences"`
	Educations  []EducationWire  `json:"educations"`
}

// ExperienceWire is the experience shape on the wire.
type ExperienceWire struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	Start   string `json:"start_date"`
	End     string `json:"end_date"`
}

// EducationWire is the education shape on the wire.
type EducationWire struct {
	School string `json:"school"`
	Degree string `json:"degree"`
	Field  string `json:"field_of_study"`
}

// ProfileFromWire maps a wire profile to the client shape.
func ProfileFromWire(w ProfileWire) Profile {
	p := Profile{
		UserID:   w.UserID,
		Name:     w.Name,
		Title:    w.Title,
		Company:  w.Company,
		Location: w.Location,
		Email:    w.Email,
		LinkedIn: w.LinkedIn,
		PfpURL:   w.PfpURL,
		Summary:  w.Summary,
		Skills:   w.Skills,
	}
	for _, e := range w.Experiences {
		p.Experiences = append(p.Experiences, Experience(e))
	}
	for _, e := range w.Educations {
		p.Educations = append(p.Educations, Education(e))
	}
	return p
}
