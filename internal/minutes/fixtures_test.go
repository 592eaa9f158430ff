package minutes

const sampleMinutes = `NIEDERSCHRIFT
über die Sitzung der Stadtverordnetenversammlung der Stadt Pohlheim
Tag: 14.3.2023
Dauer: 19:00 - 21:30 Uhr
Ort: Bürgerhaus Watzenborn-Steinberg

Anwesend:
Von der CDU-Fraktion:
STV Mueller
STV Schmidt
Schriftführer:
Frau Klein
Seite 1 von 3
STV/123/23-01
Entschuldigt:
Vom Magistrat:
Stadtrat Weber

TAGESORDNUNG:
TOP 1 Eröffnung der Sitzung, Begrüßung und Feststellung der Beschlussfähigkeit
TOP 2 Haushaltssatzung 2023
TOP 3 Bebauungsplan Nr. 12

--- SEITE 2 ---
TOP 1 Eröffnung der Sitzung, Begrüßung und Feststellung der Beschlussfähigkeit
Der Vorsitzende eröffnet die Sitzung und stellt die Beschlussfähigkeit fest.

TOP 2 Haushaltssatzung 2023
Vorlage: STV/045/2023
Die Stadtverordnetenversammlung beschließt die Haushaltssatzung.

Abstimmungsergebnis: 20 Ja, 5 Nein, 2 Enthaltungen

Seite 2 von 3
TOP 3 Bebauungsplan Nr. 12
"Am Weiher"
Die Stadtverordnetenversammlung beschließt den Bebauungsplan.
Einstimmig beschlossen.

Unterschriften
gez. Meier
gez. Klein
`

const scenarioA = "Anwesend:\nVon der Fraktion X:\nSTV Mueller\nSTV Schmidt\nEntschuldigt:\nVon der Fraktion Y:\nSTV Weber\nTagesordnung:"
