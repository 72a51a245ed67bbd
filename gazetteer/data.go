// Copyright 2025 The Gardecm Authors
// SPDX-License-Identifier: Apache-2.0

package gazetteer

import "github.com/jcodagnone/gardecm/spatial"

func pt(lat, lng float64) spatial.Point {
	return spatial.Point{Lat: lat, Lng: lng}
}

// sentinels are the Yaoundé-center defaults injected by the first registry
// import. A registry row sitting on one of them was never geocoded.
var sentinels = []spatial.Point{
	pt(3.8530, 11.5021),
	pt(3.8533, 11.5050),
	pt(3.8480, 11.5020),
	pt(3.8518, 11.5080),
	pt(3.8486, 11.5101),
	pt(3.8443, 11.5103),
	pt(3.8400, 11.5081),
	pt(3.8371, 11.5037),
	pt(3.8395, 11.4923),
	pt(3.8450, 11.4884),
}

// cityCenters lists every scraped city, plus towns known to host pharmacies
// that the duty site does not cover.
var cityCenters = []Place{
	// Adamaoua
	{"Banyo", pt(6.7500, 11.8167)},
	{"Ngaoundéré", pt(7.3167, 13.5833)},
	// Centre
	{"Bafia", pt(4.7500, 11.2333)},
	{"Mbalmayo", pt(3.5167, 11.5000)},
	{"Mbandjock", pt(4.4500, 11.9000)},
	{"Mbankomo", pt(3.7833, 11.3833)},
	{"Obala", pt(4.1667, 11.5333)},
	{"Sa A", pt(4.3667, 11.4500)},
	{"Yaounde", pt(3.8667, 11.5167)},
	// Est
	{"Abong Mbang", pt(3.9833, 13.1833)},
	{"Batouri", pt(4.4333, 14.3667)},
	{"Bertoua", pt(4.5833, 13.6833)},
	{"Garoua Boulai", pt(5.8833, 14.5500)},
	// Extreme-Nord
	{"Kousseri", pt(12.0767, 15.0306)},
	{"Maga", pt(10.8500, 14.9500)},
	{"Maroua", pt(10.5956, 14.3159)},
	{"Yagoua", pt(10.3417, 15.2333)},
	// Littoral
	{"Douala", pt(4.0511, 9.7679)},
	{"Edea", pt(3.8000, 10.1333)},
	{"Loum", pt(4.7167, 9.7333)},
	{"Mbanga", pt(4.5000, 9.5667)},
	{"Melong", pt(5.1167, 9.9500)},
	{"Nkongsamba", pt(4.9500, 9.9333)},
	// Nord
	{"Figuil", pt(9.7583, 13.9667)},
	{"Garoua", pt(9.3000, 13.3833)},
	{"Guider", pt(9.9333, 13.9500)},
	{"Touboro", pt(7.7667, 15.3667)},
	// Nord-Ouest
	{"Bamenda", pt(5.9597, 10.1597)},
	{"Mbengwy", pt(6.1000, 10.0000)},
	// Ouest
	{"Bafang", pt(5.1667, 10.1833)},
	{"Bafoussam", pt(5.4737, 10.4176)},
	{"Bagangte", pt(5.1500, 10.5333)},
	{"Bandja", pt(5.3333, 10.3667)},
	{"Bandjoun", pt(5.3667, 10.4167)},
	{"Dschang", pt(5.4500, 10.0500)},
	{"Foumban", pt(5.7167, 10.8833)},
	{"Foumbot", pt(5.5167, 10.6167)},
	{"Mbouda", pt(5.6333, 10.2500)},
	// Sud
	{"Ambam", pt(2.3833, 11.2833)},
	{"Ebolowa", pt(2.9000, 11.1500)},
	{"Kribi", pt(2.9500, 9.9167)},
	{"Sangmelima", pt(2.9333, 11.9833)},
	// Sud-Ouest
	{"Buea", pt(4.1597, 9.2311)},
	{"Kumba", pt(4.6333, 9.4500)},
	{"Likomba", pt(4.0833, 9.2667)},
	{"Limbe", pt(4.0167, 9.2000)},
	{"Mutengene", pt(4.0917, 9.3083)},
	{"Muyuka", pt(4.2833, 9.4167)},
	{"Tiko", pt(4.0750, 9.3600)},
	// not on the duty site
	{"Meiganga", pt(6.5167, 14.3000)},
	{"Tibati", pt(6.4667, 12.6333)},
	{"Mamfe", pt(5.7667, 9.3000)},
	{"Wum", pt(6.3833, 10.0667)},
	{"Fundong", pt(6.2500, 10.2667)},
	{"Kumbo", pt(6.2000, 10.6667)},
	{"Nkambé", pt(6.6167, 10.6667)},
	{"Mokolo", pt(10.7333, 13.8000)},
	{"Mora", pt(11.0500, 14.1333)},
	{"Kaélé", pt(10.1000, 14.4500)},
	{"Yokadouma", pt(3.5167, 15.0500)},
	{"Akonolinga", pt(3.7667, 12.2500)},
	{"Nanga Eboko", pt(4.6833, 12.3667)},
}

// cityAliases maps alternate spellings (folded) to a city center label.
var cityAliases = map[string]string{
	"bangangte": "Bagangte",
	"mbengwi":   "Mbengwy",
	"yde":       "Yaounde",
	"dla":       "Douala",
}

// quarterTables hold neighborhood points for the cities where the duty site
// reports quarters precisely enough. Order matters: the first match wins.
var quarterTables = map[string][]Place{
	"yaounde": {
		{"centre ville", pt(3.8667, 11.5167)},
		{"centre", pt(3.8667, 11.5167)},
		{"marche central", pt(3.8660, 11.5183)},
		{"poste centrale", pt(3.8667, 11.5167)},
		{"avenue kennedy", pt(3.8667, 11.5150)},
		{"hippodrome", pt(3.8756, 11.5200)},
		{"nlongkak", pt(3.8800, 11.5167)},
		{"bastos", pt(3.8917, 11.5100)},
		{"golf", pt(3.8850, 11.5050)},
		{"tsinga", pt(3.8833, 11.5033)},
		{"messa", pt(3.8722, 11.5043)},
		{"camp yeyap", pt(3.8700, 11.5000)},
		{"briqueterie", pt(3.8761, 11.5120)},
		{"mokolo", pt(3.8750, 11.5100)},
		{"mvog mbi", pt(3.8600, 11.5250)},
		{"mvog ada", pt(3.8644, 11.5277)},
		{"mvog atangana mballa", pt(3.8489, 11.5193)},
		{"mvolyé", pt(3.8550, 11.5017)},
		{"nsimeyong", pt(3.8352, 11.4944)},
		{"nkoldongo", pt(3.8560, 11.5273)},
		{"essos", pt(3.8737, 11.5403)},
		{"omnisport", pt(3.8833, 11.5433)},
		{"omnisports", pt(3.8833, 11.5433)},
		{"mfandena", pt(3.8800, 11.5350)},
		{"biyem assi", pt(3.8373, 11.4850)},
		{"biyem-assi", pt(3.8373, 11.4850)},
		{"mendong", pt(3.8400, 11.4700)},
		{"simbock", pt(3.8212, 11.4719)},
		{"nkolbisson", pt(3.8600, 11.4600)},
		{"oyom abang", pt(3.8751, 11.4754)},
		{"etoudi", pt(3.8950, 11.5250)},
		{"olembe", pt(3.9167, 11.5333)},
		{"ngoussou", pt(3.8943, 11.5492)},
		{"ngousso", pt(3.8943, 11.5492)},
		{"chapelle ngousso", pt(3.8943, 11.5492)},
		{"ekounou", pt(3.8440, 11.5405)},
		{"ahala", pt(3.7947, 11.4899)},
		{"nsam", pt(3.8251, 11.5077)},
		{"obili", pt(3.8512, 11.4935)},
		{"melen", pt(3.8504, 11.4866)},
		{"efoulan", pt(3.8357, 11.5069)},
		{"elig edzoa", pt(3.8867, 11.5282)},
		{"madagascar", pt(3.8828, 11.4927)},
		{"awae escalier", pt(3.8370, 11.5037)},
		{"odza", pt(3.8075, 11.5303)},
		{"petit marche odza", pt(3.8075, 11.5303)},
		{"tongolo", pt(3.9068, 11.5251)},
		{"kondengui", pt(3.8650, 11.5380)},
		{"etoa meki", pt(3.8834, 11.5263)},
		{"carrefour meec", pt(3.8700, 11.4850)},
		{"fokou etoudi", pt(3.8950, 11.5250)},
		{"olezoa", pt(3.8465, 11.5148)},
		{"mobil olezoa", pt(3.8465, 11.5148)},
		{"mimboman", pt(3.8600, 11.5500)},
		{"mimboman chapelle", pt(3.8600, 11.5500)},
		{"cinema abbia", pt(3.8671, 11.5170)},
		{"nouvelle route omnisports", pt(3.8806, 11.5389)},
		{"ecole de guerre", pt(3.8212, 11.4719)},
		{"face feicom", pt(3.8600, 11.5500)},
		{"carrefour amitie", pt(3.8498, 11.5157)},
		{"cite verte", pt(3.8800, 11.4950)},
		{"emana", pt(3.9050, 11.5250)},
		{"nkolmesseng", pt(3.8450, 11.5150)},
		{"ngoa ekele", pt(3.8595, 11.5046)},
		{"mvog betsi", pt(3.8500, 11.5300)},
		{"damas", pt(3.8600, 11.5350)},
		{"nkomo", pt(3.8450, 11.5451)},
		{"etoa", pt(3.8834, 11.5263)},
		{"obobogo", pt(3.8300, 11.4900)},
		{"mvan", pt(3.8350, 11.5150)},
		{"anguissa", pt(3.8550, 11.5250)},
		{"elig essono", pt(3.8580, 11.5220)},
		{"messa dead end", pt(3.8722, 11.5043)},
		{"nkomkana", pt(3.8400, 11.5200)},
	},
	"douala": {
		{"akwa", pt(4.0500, 9.7000)},
		{"akwa nord", pt(4.0600, 9.7100)},
		{"bonanjo", pt(4.0400, 9.6900)},
		{"bonapriso", pt(4.0400, 9.7150)},
		{"bali", pt(4.0300, 9.6900)},
		{"deido", pt(4.0600, 9.7350)},
		{"bonaberi", pt(4.0700, 9.6700)},
		{"ndokoti", pt(4.0400, 9.7400)},
		{"makepe", pt(4.0650, 9.7550)},
		{"kotto", pt(4.0680, 9.7600)},
		{"bonamoussadi", pt(4.0750, 9.7450)},
		{"logpom", pt(4.0600, 9.7700)},
		{"logbessou", pt(4.0550, 9.7600)},
		{"bepanda", pt(4.0500, 9.7550)},
		{"cite des palmiers", pt(4.0450, 9.7600)},
		{"new bell", pt(4.0350, 9.7300)},
		{"village", pt(4.0450, 9.7350)},
		{"madagascar", pt(4.0350, 9.7350)},
		{"bassa", pt(4.0250, 9.7500)},
		{"pk8", pt(4.0600, 9.7850)},
		{"pk10", pt(4.0700, 9.7950)},
		{"pk12", pt(4.0800, 9.8050)},
		{"pk14", pt(4.0900, 9.8150)},
		{"yassa", pt(4.0200, 9.7800)},
		{"japoma", pt(4.0100, 9.7700)},
		{"nyalla", pt(4.0100, 9.7800)},
		{"omnisports", pt(4.0300, 9.7600)},
		{"bapenda", pt(4.0200, 9.7000)},
	},
}
